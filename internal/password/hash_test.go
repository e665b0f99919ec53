package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fastParams = Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashVerify_Argon2id(t *testing.T) {
	encoded, err := Hash("correct horse battery staple", fastParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=64,t=1,p=1$"))

	assert.NoError(t, Verify(encoded, "correct horse battery staple"))
	assert.ErrorIs(t, Verify(encoded, "correct horse battery stapler"), ErrMismatch)
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, err := Hash("same-password", fastParams)
	require.NoError(t, err)
	b, err := Hash("same-password", fastParams)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerify_ParamsComeFromHash(t *testing.T) {
	stronger := fastParams
	stronger.Iterations = 3
	stronger.Memory = 128

	encoded, err := Hash("pw", stronger)
	require.NoError(t, err)

	p, _, _, err := decodeArgon2id(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), p.Iterations)
	assert.Equal(t, uint32(128), p.Memory)
	assert.NoError(t, Verify(encoded, "pw"))
}

func TestVerify_Bcrypt(t *testing.T) {
	raw, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, Verify(string(raw), "legacy-password"))
	assert.ErrorIs(t, Verify(string(raw), "nope"), ErrMismatch)
}

func TestVerify_Malformed(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$md5$abc",
		"$argon2id$v=19$m=64,t=1,p=1$onlysalt",
		"$argon2id$v=18$m=64,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHQ$",
		"$2b$10$tooshort",
	}
	for _, c := range cases {
		err := Verify(c, "pw")
		assert.ErrorIs(t, err, ErrMalformedHash, c)
		assert.NotErrorIs(t, err, ErrMismatch, c)
	}
}
