package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const endpoint = "https://ai.test/v1beta/models/test-model:generateContent"

func newTestClient() *Client {
	return New(Config{APIKey: "k", Model: "test-model", BaseURL: "https://ai.test/v1beta/"})
}

func answer(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}},
	})
	return string(b)
}

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.White)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestParsePlateAnswer(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		letters string
		numbers string
		err     error
	}{
		{name: "arabic", input: "LETTERS: أ ب ج\nNUMBERS: 1234", letters: "أ ب ج", numbers: "1234"},
		{name: "lower case and extra text", input: "Sure!\nletters:  A  B J\r\nnumbers: 77", letters: "A B J", numbers: "77"},
		{name: "arabic-indic digits", input: "LETTERS: د\nNUMBERS: ١٢٣", letters: "د", numbers: "123"},
		{name: "empty letters do not swallow next line", input: "LETTERS:\nNUMBERS: 55", letters: "", numbers: "55"},
		{name: "nothing", input: "I cannot read this plate", err: ErrNoPlate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParsePlateAnswer(tt.input)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.letters, res.Letters)
			assert.Equal(t, tt.numbers, res.Numbers)
			assert.Equal(t, tt.input, res.Raw)
		})
	}
}

func TestPreprocessPlate(t *testing.T) {
	out, err := PreprocessPlate(samplePNG(t, 200, 60), image.Rect(0, 0, 100, 40))
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, minPlateWidth, img.Bounds().Dx(), "small crops are upscaled")
	assert.Equal(t, 320, img.Bounds().Dy())

	_, err = PreprocessPlate([]byte("not an image"), image.Rectangle{})
	assert.Error(t, err)
}

func TestExtractPlate(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var sent generateRequest
	httpmock.RegisterResponder("POST", endpoint, func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("x-goog-api-key") != "k" {
			return httpmock.NewStringResponse(http.StatusUnauthorized, `{}`), nil
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &sent); err != nil {
			return nil, err
		}
		return httpmock.NewStringResponse(http.StatusOK, answer("LETTERS: أ ب ج\nNUMBERS: 1234")), nil
	})

	res, err := newTestClient().ExtractPlate(context.Background(), samplePNG(t, 1000, 300), image.Rectangle{}, "ar")
	require.NoError(t, err)
	assert.Equal(t, "أ ب ج", res.Letters)
	assert.Equal(t, "1234", res.Numbers)

	require.Len(t, sent.Contents, 1)
	require.Len(t, sent.Contents[0].Parts, 2)
	assert.Contains(t, sent.Contents[0].Parts[0].Text, "Arabic letters")
	require.NotNil(t, sent.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/jpeg", sent.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestSuggestTheme(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var sent generateRequest
	httpmock.RegisterResponder("POST", endpoint, func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(body, &sent)
		theme := `{"name":"ocean","primary_color":"#0369a1","text_color":"#0c4a6e","background_color":"#f0f9ff","border_color":"#bae6fd","font_family":"Cairo, sans-serif"}`
		return httpmock.NewStringResponse(http.StatusOK, answer(theme)), nil
	})

	th, err := newTestClient().SuggestTheme(context.Background(), "calm blue")
	require.NoError(t, err)
	assert.Equal(t, "ocean", th.Name)
	assert.Equal(t, "#0369a1", th.PrimaryColor)
	assert.Equal(t, "Cairo, sans-serif", th.FontFamily)

	require.NotNil(t, sent.GenerationConfig)
	assert.Equal(t, "application/json", sent.GenerationConfig.ResponseMimeType)
	assert.Equal(t, "OBJECT", sent.GenerationConfig.ResponseSchema["type"])
}

func TestSuggestThemeRejectsBadColors(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("POST", endpoint, httpmock.NewStringResponder(http.StatusOK,
		answer(`{"name":"x","primary_color":"blue","text_color":"#000","background_color":"#fff","border_color":"#ccc","font_family":"Arial"}`)))

	_, err := newTestClient().SuggestTheme(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInvalidTheme)
}

func TestAPIErrors(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	tests := []struct {
		name      string
		responder httpmock.Responder
		code      string
	}{
		{
			name:      "invalid key",
			responder: httpmock.NewStringResponder(400, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`),
			code:      CodeInvalidKey,
		},
		{
			name:      "forbidden",
			responder: httpmock.NewStringResponder(403, `{"error":{"code":403,"message":"permission denied","status":"PERMISSION_DENIED"}}`),
			code:      CodeInvalidKey,
		},
		{
			name:      "bad request",
			responder: httpmock.NewStringResponder(400, `{"error":{"code":400,"message":"image too large","status":"INVALID_ARGUMENT"}}`),
			code:      CodeClient,
		},
		{
			name:      "overloaded",
			responder: httpmock.NewStringResponder(503, `{"error":{"code":503,"message":"The model is overloaded","status":"UNAVAILABLE"}}`),
			code:      CodeServer,
		},
		{
			name:      "network",
			responder: httpmock.NewErrorResponder(errors.New("dial tcp: connection refused")),
			code:      CodeNetwork,
		},
		{
			name:      "empty",
			responder: httpmock.NewStringResponder(200, `{"candidates":[]}`),
			code:      CodeUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.RegisterResponder("POST", endpoint, tt.responder)
			_, err := newTestClient().SuggestTheme(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.code, Classify(err))
		})
	}
}

func TestMissingKey(t *testing.T) {
	c := New(Config{})
	assert.False(t, c.Enabled())
	_, err := c.ExtractPlate(context.Background(), nil, image.Rectangle{}, "ar")
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Equal(t, CodeInvalidKey, Classify(err))
}

func TestClassifyPlainErrors(t *testing.T) {
	assert.Equal(t, "", Classify(nil))
	assert.Equal(t, CodeNetwork, Classify(context.DeadlineExceeded))
	assert.Equal(t, CodeServer, Classify(fmt.Errorf("upstream: status 502")))
	assert.Equal(t, CodeClient, Classify(fmt.Errorf("upstream: status 429")))
	assert.Equal(t, CodeUnknown, Classify(errors.New("boom")))
}
