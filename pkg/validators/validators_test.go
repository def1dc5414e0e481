package validators

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmailValidator(t *testing.T) {
	require.NoError(t, EmailValidator("ann@x.com"))

	require.ErrorIs(t, EmailValidator(""), ErrEmailEmpty)

	for _, e := range []string{
		"ann",
		"ann@",
		"Ann <ann@x.com>",
		" ann@x.com",
		strings.Repeat("a", 250) + "@x.com",
	} {
		require.ErrorIs(t, EmailValidator(e), ErrEmailInvalid, e)
	}
}

func TestPasswordValidator(t *testing.T) {
	require.NoError(t, PasswordValidator("password1"))
	require.NoError(t, PasswordValidator("12345678"))

	require.ErrorIs(t, PasswordValidator(""), ErrPasswordEmpty)
	require.ErrorIs(t, PasswordValidator("1234567"), ErrPasswordTooShort)
	require.ErrorIs(t, PasswordValidator(strings.Repeat("x", 256)), ErrPasswordTooLong)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("image1", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	return form.File["image1"][0]
}

func TestImageValidator(t *testing.T) {
	rules := ImageRules{MaxSize: 1 << 10, AllowedTypes: []string{"image/png", "image/jpeg"}}

	code, f, mime, err := ImageValidator(fileHeader(t, "shirt.png", pngHeader), rules)
	require.NoError(t, err)
	require.Zero(t, code)
	require.Equal(t, "image/png", mime)

	// Rewound to the start
	buf := make([]byte, 4)
	_, err = f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "\x89PNG", string(buf))
	f.Close()
}

func TestImageValidatorRejects(t *testing.T) {
	rules := ImageRules{MaxSize: 64, AllowedTypes: []string{"image/png"}}

	code, _, _, err := ImageValidator(nil, rules)
	require.ErrorIs(t, err, ErrNoFile)
	require.Equal(t, http.StatusBadRequest, code)

	// Named like an image but actually text
	code, _, _, err = ImageValidator(fileHeader(t, "shirt.png", []byte("hello there")), rules)
	require.ErrorIs(t, err, ErrImageTypeUnsupported)
	require.Equal(t, http.StatusBadRequest, code)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 128)...)
	code, _, _, err = ImageValidator(fileHeader(t, "big.png", big), rules)
	require.ErrorIs(t, err, ErrFileTooLarge)
	require.Equal(t, http.StatusRequestEntityTooLarge, code)

	code, _, _, err = ImageValidator(fileHeader(t, strings.Repeat("a", 300)+".png", pngHeader), rules)
	require.ErrorIs(t, err, ErrFileNameTooLong)
	require.Equal(t, http.StatusBadRequest, code)
}
