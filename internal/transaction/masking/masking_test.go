package masking

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "Bearer ****wxyz", MaskSecret("Bearer abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "****7890", MaskSecret("sk1234567890"))
}

func TestMaskSecretIsIdempotent(t *testing.T) {
	once := MaskSecret("Token abcdefghijklmnop")
	assert.Equal(t, once, MaskSecret(once))
}

func TestFlattenHeadersMasksCredentials(t *testing.T) {
	headers := http.Header{}
	headers.Set("Authorization", "Token 0123456789abcdef")
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Session-Token", "supersecretvalue")
	headers.Add("Accept", "application/json")
	headers.Add("Accept", "text/plain")

	out := FlattenHeaders(headers)

	assert.Equal(t, "Token ****cdef", out["Authorization"])
	assert.Equal(t, "application/json", out["Content-Type"])
	assert.Equal(t, "****alue", out["X-Session-Token"])
	assert.Equal(t, "application/json, text/plain", out["Accept"])
}

func TestMaskHeadersLeavesInputUntouched(t *testing.T) {
	in := map[string]string{"X-Api-Key": "abcdefghijkl", "Accept": "*/*"}
	out := MaskHeaders(in)

	assert.Equal(t, "****ijkl", out["X-Api-Key"])
	assert.Equal(t, "abcdefghijkl", in["X-Api-Key"])
	assert.Nil(t, MaskHeaders(nil))
}
