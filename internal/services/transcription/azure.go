package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/httpclient"
	"github.com/gijiroku/minutes/internal/providers"
)

// AzureProvider uses the Speech service short-audio REST API.
type AzureProvider struct {
	httpClient *http.Client
	// baseURL overrides both regional hosts; empty means derive from region.
	baseURL string
}

// NewAzureProvider creates a new Azure Speech transcription provider
func NewAzureProvider(httpClient *http.Client) *AzureProvider {
	return &AzureProvider{httpClient: httpClient}
}

type azureRecognition struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
}

func (p *AzureProvider) ID() providers.ID {
	return providers.Azure
}

func (p *AzureProvider) sttURL(region string) string {
	if p.baseURL != "" {
		return p.baseURL
	}
	return fmt.Sprintf("https://%s.stt.speech.microsoft.com", region)
}

func (p *AzureProvider) tokenURL(region string) string {
	if p.baseURL != "" {
		return p.baseURL
	}
	return fmt.Sprintf("https://%s.api.cognitive.microsoft.com", region)
}

func (p *AzureProvider) Transcribe(ctx context.Context, audio Audio, opts Options, cred providers.Credential) (string, error) {
	q := url.Values{}
	q.Set("language", azureLocale(opts.Language))
	q.Set("format", "simple")
	endpoint := p.sttURL(cred.Region) + "/speech/recognition/conversation/cognitiveservices/v1?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio.Data))
	if err != nil {
		return "", errors.NewInternalError("failed to create Azure request", "REQUEST_BUILD_ERROR", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", cred.Key)
	contentType := audio.MimeType
	if contentType == "" {
		contentType = "audio/wav"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := httpclient.Call(ctx, p.httpClient, string(providers.Azure), "transcribe", req)
	if err != nil {
		return "", err
	}

	var rec azureRecognition
	if err := json.Unmarshal(resp.Body, &rec); err != nil {
		return "", errors.NewMalformedResponseError(string(providers.Azure), resp.Body, err)
	}

	switch rec.RecognitionStatus {
	case "Success":
		return rec.DisplayText, nil
	case "NoMatch", "InitialSilenceTimeout":
		return "", nil
	default:
		return "", errors.NewUpstreamJobError(string(providers.Azure), rec.RecognitionStatus)
	}
}

// Probe issues a short-lived access token, which is free.
func (p *AzureProvider) Probe(ctx context.Context, cred providers.Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL(cred.Region)+"/sts/v1.0/issueToken", nil)
	if err != nil {
		return errors.NewInternalError("failed to create Azure probe request", "REQUEST_BUILD_ERROR", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", cred.Key)

	_, err = httpclient.Call(ctx, p.httpClient, string(providers.Azure), "probe", req)
	return err
}

// azureLocale expands a bare language code to the locale Azure expects.
func azureLocale(lang string) string {
	switch {
	case lang == "":
		return "ja-JP"
	case strings.Contains(lang, "-"):
		return lang
	}
	switch lang {
	case "ja":
		return "ja-JP"
	case "en":
		return "en-US"
	case "zh":
		return "zh-CN"
	case "ko":
		return "ko-KR"
	default:
		return lang + "-" + strings.ToUpper(lang)
	}
}
