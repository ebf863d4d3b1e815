package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SarAA2003/QuickAi/app/models"
	"github.com/SarAA2003/QuickAi/auth"

	"github.com/gin-gonic/gin"
)

type fakeEntitlements struct {
	ent        models.Entitlement
	resolveErr error
	increments int
}

func (f *fakeEntitlements) Resolve(ctx context.Context, userID string) (models.Entitlement, error) {
	if f.resolveErr != nil {
		return models.Entitlement{}, f.resolveErr
	}
	return f.ent, nil
}

func (f *fakeEntitlements) IncrementFreeUsage(ctx context.Context, userID string) error {
	f.increments++
	return nil
}

type fakeCreations struct {
	rows      []models.Creation
	appendErr error
}

func (f *fakeCreations) Append(ctx context.Context, rec models.Creation) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, rec)
	return nil
}

func (f *fakeCreations) ListByUser(ctx context.Context, userID string) ([]models.Creation, error) {
	return f.rows, nil
}

func (f *fakeCreations) ListPublished(ctx context.Context) ([]models.Creation, error) {
	return f.rows, nil
}

type fakeCompleter struct {
	content string
	err     error
	calls   int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

type fakeImageGen struct {
	data  []byte
	calls int
}

func (f *fakeImageGen) Generate(ctx context.Context, prompt string) ([]byte, error) {
	f.calls++
	return f.data, nil
}

type fakeImages struct {
	url      string
	uploads  int
	bgCalls  int
	objCalls int
}

func (f *fakeImages) Upload(ctx context.Context, r io.Reader) (string, error) {
	f.uploads++
	return f.url, nil
}

func (f *fakeImages) RemoveBackground(ctx context.Context, path string) (string, error) {
	f.bgCalls++
	return f.url, nil
}

func (f *fakeImages) RemoveObject(ctx context.Context, path, object string) (string, error) {
	f.objCalls++
	return f.url, nil
}

// installFakes swaps the package-level stores and clients for the test and
// restores them afterwards.
func installFakes(t *testing.T, ents *fakeEntitlements, crs *fakeCreations, compl *fakeCompleter, gen *fakeImageGen, imgs *fakeImages) {
	t.Helper()
	prevEnts, prevCrs := entitlements, creations
	prevCompl, prevGen, prevImgs := completer, imageGen, images
	entitlements, creations = ents, crs
	completer, imageGen, images = compl, gen, imgs
	t.Cleanup(func() {
		entitlements, creations = prevEnts, prevCrs
		completer, imageGen, images = prevCompl, prevGen, prevImgs
	})
}

// newAuthedRouter registers the feature routes behind a stub middleware that
// injects claims for the given subject.
func newAuthedRouter(sub string) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		ctx := auth.WithClaims(c.Request.Context(), &auth.Claims{
			Subject: sub,
			Raw:     map[string]any{"sub": sub},
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	router.POST("/api/ai/generate-article", GenerateArticle)
	router.POST("/api/ai/generate-blog-title", GenerateBlogTitle)
	router.POST("/api/ai/generate-image", GenerateImage)
	router.POST("/api/ai/remove-image-background", RemoveImageBackground)
	router.POST("/api/ai/remove-image-object", RemoveImageObject)
	router.POST("/api/ai/resume-review", ResumeReview)
	return router
}

type apiResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Message string `json:"message"`
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) (int, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var out apiResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid response body %q: %v", resp.Body.String(), err)
	}
	return resp.Code, out
}

func postMultipart(t *testing.T, router *gin.Engine, path, fileField, filename string, fileData []byte, fields map[string]string) (int, apiResponse) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("part.Write: %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("writer.Close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var out apiResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid response body %q: %v", resp.Body.String(), err)
	}
	return resp.Code, out
}

func TestGenerateArticleAllowedAtLastSlot(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanFree, FreeUsage: FreeUsageLimit - 1}}
	crs := &fakeCreations{}
	compl := &fakeCompleter{content: "an article"}
	installFakes(t, ents, crs, compl, &fakeImageGen{}, &fakeImages{})

	router := newAuthedRouter("user-1")
	code, out := postJSON(t, router, "/api/ai/generate-article", `{"prompt":"write about go","length":500}`)

	if code != http.StatusOK || !out.Success {
		t.Fatalf("expected success, got code=%d body=%+v", code, out)
	}
	if out.Content != "an article" {
		t.Fatalf("content = %q, want %q", out.Content, "an article")
	}
	if len(crs.rows) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(crs.rows))
	}
	rec := crs.rows[0]
	if rec.Type != models.CreationArticle || rec.UserID != "user-1" || rec.Prompt != "write about go" {
		t.Fatalf("unexpected ledger row: %+v", rec)
	}
	if ents.increments != 1 {
		t.Fatalf("increments = %d, want 1", ents.increments)
	}
}

func TestGenerateArticleDeniedAtLimit(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanFree, FreeUsage: FreeUsageLimit}}
	crs := &fakeCreations{}
	compl := &fakeCompleter{content: "an article"}
	installFakes(t, ents, crs, compl, &fakeImageGen{}, &fakeImages{})

	router := newAuthedRouter("user-1")
	code, out := postJSON(t, router, "/api/ai/generate-article", `{"prompt":"write about go","length":500}`)

	if code != http.StatusOK || out.Success {
		t.Fatalf("expected denial, got code=%d body=%+v", code, out)
	}
	if out.Message != msgLimitReached {
		t.Fatalf("message = %q, want %q", out.Message, msgLimitReached)
	}
	if compl.calls != 0 {
		t.Fatalf("external call made on denial")
	}
	if len(crs.rows) != 0 || ents.increments != 0 {
		t.Fatalf("denial mutated state: rows=%d increments=%d", len(crs.rows), ents.increments)
	}
}

func TestGenerateBlogTitlePremiumNotCharged(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanPremium}}
	crs := &fakeCreations{}
	compl := &fakeCompleter{content: "Ten Go Tips"}
	installFakes(t, ents, crs, compl, &fakeImageGen{}, &fakeImages{})

	router := newAuthedRouter("user-1")
	_, out := postJSON(t, router, "/api/ai/generate-blog-title", `{"prompt":"go tips"}`)

	if !out.Success || out.Content != "Ten Go Tips" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if ents.increments != 0 {
		t.Fatalf("premium user was charged: increments=%d", ents.increments)
	}
	if len(crs.rows) != 1 || crs.rows[0].Type != models.CreationBlogTitle {
		t.Fatalf("unexpected ledger rows: %+v", crs.rows)
	}
}

func TestRemoveImageBackgroundPremiumOnly(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanFree, FreeUsage: 0}}
	crs := &fakeCreations{}
	imgs := &fakeImages{url: "https://cdn.example/out.png"}
	installFakes(t, ents, crs, &fakeCompleter{}, &fakeImageGen{}, imgs)

	router := newAuthedRouter("user-1")
	code, out := postMultipart(t, router, "/api/ai/remove-image-background", "image", "photo.png", []byte("png-bytes"), nil)

	if code != http.StatusOK || out.Success {
		t.Fatalf("expected denial, got code=%d body=%+v", code, out)
	}
	if out.Message != msgPremiumRequired {
		t.Fatalf("message = %q, want %q", out.Message, msgPremiumRequired)
	}
	if imgs.bgCalls != 0 {
		t.Fatalf("external call attempted on denial")
	}
	if len(crs.rows) != 0 {
		t.Fatalf("ledger row written on denial")
	}
}

func TestRemoveImageObjectRecordsPrompt(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanPremium}}
	crs := &fakeCreations{}
	imgs := &fakeImages{url: "https://cdn.example/clean.png"}
	installFakes(t, ents, crs, &fakeCompleter{}, &fakeImageGen{}, imgs)

	router := newAuthedRouter("user-1")
	_, out := postMultipart(t, router, "/api/ai/remove-image-object", "image", "photo.png", []byte("png-bytes"), map[string]string{"object": "lamp"})

	if !out.Success || out.Content != "https://cdn.example/clean.png" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if imgs.objCalls != 1 {
		t.Fatalf("objCalls = %d, want 1", imgs.objCalls)
	}
	if len(crs.rows) != 1 || crs.rows[0].Prompt != "Removed lamp from image" {
		t.Fatalf("unexpected ledger rows: %+v", crs.rows)
	}
}

func TestGenerateImagePublishFlag(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanPremium}}
	crs := &fakeCreations{}
	gen := &fakeImageGen{data: []byte("png-bytes")}
	imgs := &fakeImages{url: "https://cdn.example/gen.png"}
	installFakes(t, ents, crs, &fakeCompleter{}, gen, imgs)

	router := newAuthedRouter("user-1")
	_, out := postJSON(t, router, "/api/ai/generate-image", `{"prompt":"a lighthouse","publish":true}`)

	if !out.Success || out.Content != "https://cdn.example/gen.png" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if gen.calls != 1 || imgs.uploads != 1 {
		t.Fatalf("gen=%d uploads=%d, want 1/1", gen.calls, imgs.uploads)
	}
	if len(crs.rows) != 1 || !crs.rows[0].Publish || crs.rows[0].Type != models.CreationImage {
		t.Fatalf("unexpected ledger rows: %+v", crs.rows)
	}
}

func TestResolveFailureFailsClosed(t *testing.T) {
	ents := &fakeEntitlements{resolveErr: errors.New("profile store down")}
	crs := &fakeCreations{}
	compl := &fakeCompleter{content: "an article"}
	installFakes(t, ents, crs, compl, &fakeImageGen{}, &fakeImages{})

	router := newAuthedRouter("user-1")
	code, out := postJSON(t, router, "/api/ai/generate-article", `{"prompt":"hello"}`)

	if code != http.StatusOK || out.Success {
		t.Fatalf("expected fail-closed denial, got code=%d body=%+v", code, out)
	}
	if compl.calls != 0 || len(crs.rows) != 0 {
		t.Fatalf("resolution failure reached the capability or the ledger")
	}
}

func TestExternalFailureWritesNothing(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanFree, FreeUsage: 2}}
	crs := &fakeCreations{}
	compl := &fakeCompleter{err: errors.New("model unavailable")}
	installFakes(t, ents, crs, compl, &fakeImageGen{}, &fakeImages{})

	router := newAuthedRouter("user-1")
	_, out := postJSON(t, router, "/api/ai/generate-article", `{"prompt":"hello"}`)

	if out.Success {
		t.Fatalf("expected failure response: %+v", out)
	}
	if len(crs.rows) != 0 {
		t.Fatalf("ledger row written after failed call")
	}
	if ents.increments != 0 {
		t.Fatalf("allowance consumed by failed call")
	}
}

func TestResumeReviewRejectsOversizedFile(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanPremium}}
	crs := &fakeCreations{}
	compl := &fakeCompleter{content: "critique"}
	installFakes(t, ents, crs, compl, &fakeImageGen{}, &fakeImages{})

	extractions := 0
	prev := pdfText
	pdfText = func(data []byte) (string, error) {
		extractions++
		return "", nil
	}
	t.Cleanup(func() { pdfText = prev })

	big := bytes.Repeat([]byte("a"), maxResumeBytes+1)
	router := newAuthedRouter("user-1")
	_, out := postMultipart(t, router, "/api/ai/resume-review", "resume", "resume.pdf", big, nil)

	if out.Success {
		t.Fatalf("oversized resume accepted: %+v", out)
	}
	if out.Message != "Resume file size exceeds allowed size (5MB)." {
		t.Fatalf("message = %q", out.Message)
	}
	if extractions != 0 || compl.calls != 0 {
		t.Fatalf("oversized resume reached extraction or completion")
	}
}

func TestResumeReviewMissingFile(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanPremium}}
	installFakes(t, ents, &fakeCreations{}, &fakeCompleter{}, &fakeImageGen{}, &fakeImages{})

	router := newAuthedRouter("user-1")
	_, out := postMultipart(t, router, "/api/ai/resume-review", "", "", nil, map[string]string{"ignored": "1"})

	if out.Success || out.Message != "No resume uploaded." {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestResumeReviewSuccess(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanPremium}}
	crs := &fakeCreations{}
	compl := &fakeCompleter{content: "solid resume, tighten the summary"}
	installFakes(t, ents, crs, compl, &fakeImageGen{}, &fakeImages{})

	prev := pdfText
	pdfText = func(data []byte) (string, error) {
		return "ten years of Go experience", nil
	}
	t.Cleanup(func() { pdfText = prev })

	router := newAuthedRouter("user-1")
	_, out := postMultipart(t, router, "/api/ai/resume-review", "resume", "resume.pdf", []byte("%PDF-1.4 fake"), nil)

	if !out.Success || out.Content != "solid resume, tighten the summary" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if len(crs.rows) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(crs.rows))
	}
	rec := crs.rows[0]
	if rec.Type != models.CreationResumeReview || rec.Prompt != "Review the uploaded resume" {
		t.Fatalf("unexpected ledger row: %+v", rec)
	}
	if ents.increments != 0 {
		t.Fatalf("premium-only feature charged the counter")
	}
}

func TestAppendFailureReportsStorageError(t *testing.T) {
	ents := &fakeEntitlements{ent: models.Entitlement{Plan: models.PlanFree, FreeUsage: 0}}
	crs := &fakeCreations{appendErr: errors.New("ledger unreachable")}
	compl := &fakeCompleter{content: "an article"}
	installFakes(t, ents, crs, compl, &fakeImageGen{}, &fakeImages{})

	router := newAuthedRouter("user-1")
	_, out := postJSON(t, router, "/api/ai/generate-article", `{"prompt":"hello"}`)

	if out.Success {
		t.Fatalf("expected failure when append fails: %+v", out)
	}
	if ents.increments != 0 {
		t.Fatalf("counter charged although the ledger append failed")
	}
}
