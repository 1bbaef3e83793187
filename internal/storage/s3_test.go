package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS3PublicURL(t *testing.T) {
	s := &S3{bucket: "door-photos", region: "eu-west-1"}

	url := s.PublicURL("access_images/abc.jpg")
	assert.Equal(t, "https://door-photos.s3.eu-west-1.amazonaws.com/access_images/abc.jpg", url)
}
