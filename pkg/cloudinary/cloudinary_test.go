package cloudinary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicIDFromURL(t *testing.T) {
	cases := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v1712345678/tourhub/tours/7/img_abc.jpg":           "tourhub/tours/7/img_abc",
		"https://res.cloudinary.com/demo/image/upload/q_auto,f_auto,w_1200,c_limit/v1/tourhub/x/y.webp": "tourhub/x/y",
		"https://res.cloudinary.com/demo/image/upload/plain.png":                                          "plain",
		"https://example.com/image.png":                                                                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, PublicIDFromURL(in), in)
	}
}
