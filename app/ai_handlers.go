// Package app implements the /api/ai feature endpoints.
package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"

	"github.com/SarAA2003/QuickAi/app/models"

	"github.com/gin-gonic/gin"
)

const (
	blogTitleMaxTokens = 100
	resumeMaxTokens    = 1000
	// maxResumeBytes is the upload ceiling checked before any extraction.
	maxResumeBytes = 5 * 1024 * 1024
)

const resumeReviewPrompt = "Review the following resume and provide constructive feedback on its strengths, weaknesses, and areas to improve. Resume Content:\n\n"

// GenerateArticle produces long-form text from a prompt. Metered for free users.
func GenerateArticle(c *gin.Context) {
	var req models.GenerateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, "Invalid request body.")
		return
	}

	dispatch(c, feature{
		policy: meteredPolicy,
		kind:   models.CreationArticle,
		prompt: req.Prompt,
		validate: func() error {
			if req.Prompt == "" {
				return denial("No prompt provided.")
			}
			return nil
		},
		call: func(ctx context.Context) (string, error) {
			return completer.Complete(ctx, req.Prompt, req.Length)
		},
	})
}

// GenerateBlogTitle produces a short title from a prompt. Metered for free users.
func GenerateBlogTitle(c *gin.Context) {
	var req models.GenerateBlogTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, "Invalid request body.")
		return
	}

	dispatch(c, feature{
		policy: meteredPolicy,
		kind:   models.CreationBlogTitle,
		prompt: req.Prompt,
		validate: func() error {
			if req.Prompt == "" {
				return denial("No prompt provided.")
			}
			return nil
		},
		call: func(ctx context.Context) (string, error) {
			return completer.Complete(ctx, req.Prompt, blogTitleMaxTokens)
		},
	})
}

// GenerateImage renders an image from a prompt and stores it. Premium only.
func GenerateImage(c *gin.Context) {
	var req models.GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, "Invalid request body.")
		return
	}

	dispatch(c, feature{
		policy:  premiumPolicy,
		kind:    models.CreationImage,
		prompt:  req.Prompt,
		publish: req.Publish,
		validate: func() error {
			if req.Prompt == "" {
				return denial("No prompt provided.")
			}
			return nil
		},
		call: func(ctx context.Context) (string, error) {
			data, err := imageGen.Generate(ctx, req.Prompt)
			if err != nil {
				return "", err
			}
			return images.Upload(ctx, bytes.NewReader(data))
		},
	})
}

// RemoveImageBackground strips the background from an uploaded image. Premium only.
func RemoveImageBackground(c *gin.Context) {
	file, _ := c.FormFile("image")

	dispatch(c, feature{
		policy: premiumPolicy,
		kind:   models.CreationImage,
		prompt: "Remove background from image",
		validate: func() error {
			if file == nil {
				return denial("No image uploaded.")
			}
			return nil
		},
		call: func(ctx context.Context) (string, error) {
			path, cleanup, err := stageUpload(c, file)
			if err != nil {
				return "", err
			}
			defer cleanup()
			return images.RemoveBackground(ctx, path)
		},
	})
}

// RemoveImageObject removes a named object from an uploaded image. Premium only.
func RemoveImageObject(c *gin.Context) {
	file, _ := c.FormFile("image")
	object := c.PostForm("object")

	dispatch(c, feature{
		policy: premiumPolicy,
		kind:   models.CreationImage,
		prompt: fmt.Sprintf("Removed %s from image", object),
		validate: func() error {
			if file == nil {
				return denial("No image uploaded.")
			}
			if object == "" {
				return denial("No object specified.")
			}
			return nil
		},
		call: func(ctx context.Context) (string, error) {
			path, cleanup, err := stageUpload(c, file)
			if err != nil {
				return "", err
			}
			defer cleanup()
			return images.RemoveObject(ctx, path, object)
		},
	})
}

// ResumeReview critiques an uploaded PDF resume. Premium only.
func ResumeReview(c *gin.Context) {
	file, _ := c.FormFile("resume")

	dispatch(c, feature{
		policy: premiumPolicy,
		kind:   models.CreationResumeReview,
		prompt: "Review the uploaded resume",
		validate: func() error {
			if file == nil {
				return denial("No resume uploaded.")
			}
			if file.Size > maxResumeBytes {
				return denial("Resume file size exceeds allowed size (5MB).")
			}
			return nil
		},
		call: func(ctx context.Context) (string, error) {
			data, err := readUpload(file)
			if err != nil {
				return "", err
			}
			text, err := pdfText(data)
			if err != nil {
				return "", fmt.Errorf("resume extraction: %w", err)
			}
			return completer.Complete(ctx, resumeReviewPrompt+text, resumeMaxTokens)
		},
	})
}

// pdfText is swappable so tests can skip real PDF parsing.
var pdfText = extractPDFText

// stageUpload writes the multipart file to a temp path and returns a cleanup
// func that must run regardless of the call's outcome.
func stageUpload(c *gin.Context, file *multipart.FileHeader) (string, func(), error) {
	tmp, err := os.CreateTemp("", "quickai-upload-*")
	if err != nil {
		return "", nil, err
	}
	name := tmp.Name()
	tmp.Close()

	if err := c.SaveUploadedFile(file, name); err != nil {
		os.Remove(name)
		return "", nil, err
	}
	return name, func() { os.Remove(name) }, nil
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxResumeBytes+1))
}
