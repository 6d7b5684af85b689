package passwordhash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	passwordhashport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/passwordhash"
)

func TestSHA256(t *testing.T) {
	t.Parallel()

	h, err := SHA256{}.Hash("abc")
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
}

func TestBcrypt(t *testing.T) {
	t.Parallel()

	h, err := Bcrypt{Cost: bcrypt.MinCost}.Hash("Abc12345")
	require.NoError(t, err)
	assert.NotEqual(t, "Abc12345", h)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("Abc12345")))
}

func TestBcrypt_Limit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 72, passwordhashport.MaxPasswordBytes(Bcrypt{}))
	assert.Equal(t, 0, passwordhashport.MaxPasswordBytes(SHA256{}))

	_, err := Bcrypt{Cost: bcrypt.MinCost}.Hash(strings.Repeat("a", 72))
	require.NoError(t, err)
	_, err = Bcrypt{Cost: bcrypt.MinCost}.Hash(strings.Repeat("a", 73))
	require.Error(t, err)
}
