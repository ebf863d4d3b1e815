package app

import (
	"context"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// imageStore uploads images and applies hosted transformations, returning a
// stable delivery URL.
type imageStore interface {
	Upload(ctx context.Context, r io.Reader) (string, error)
	RemoveBackground(ctx context.Context, path string) (string, error)
	RemoveObject(ctx context.Context, path, object string) (string, error)
}

var images imageStore

type cloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

func newCloudinaryStore(url string) (*cloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	return &cloudinaryStore{cld: cld}, nil
}

func (s *cloudinaryStore) Upload(ctx context.Context, r io.Reader) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{})
	if err != nil {
		return "", err
	}
	return resp.SecureURL, nil
}

// RemoveBackground uploads the staged file with Cloudinary's AI background
// removal applied. PNG output keeps transparency.
func (s *cloudinaryStore) RemoveBackground(ctx context.Context, path string) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, path, uploader.UploadParams{
		Format:         "png",
		Transformation: "c_limit,w_1000,h_1000/e_background_removal",
	})
	if err != nil {
		return "", err
	}
	return resp.SecureURL, nil
}

// RemoveObject uploads the staged file untouched and returns a delivery URL
// with generative object removal applied on the fly.
func (s *cloudinaryStore) RemoveObject(ctx context.Context, path, object string) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, path, uploader.UploadParams{})
	if err != nil {
		return "", err
	}

	img, err := s.cld.Image(resp.PublicID)
	if err != nil {
		return "", err
	}
	img.Transformation = "e_gen_remove:" + object
	return img.String()
}
