package detector

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signscribe/internal/capture"
)

// Roboflow hosted inference defaults.
const (
	RoboflowAPIURL    = "https://api.roboflow.com"
	RoboflowDetectURL = "https://detect.roboflow.com"

	// roboflowMinConfidence is the server-side floor, in percent, for returned predictions.
	roboflowMinConfidence = 40
	roboflowTimeout       = 10 * time.Second
)

// RoboflowProvider talks to the Roboflow hosted inference API.
type RoboflowProvider struct {
	APIURL     string
	DetectURL  string
	HTTPClient *http.Client
}

// NewRoboflowProvider creates a provider using the public Roboflow endpoints.
func NewRoboflowProvider() *RoboflowProvider {
	return &RoboflowProvider{
		APIURL:     RoboflowAPIURL,
		DetectURL:  RoboflowDetectURL,
		HTTPClient: &http.Client{Timeout: roboflowTimeout},
	}
}

type roboflowSession struct {
	provider  *RoboflowProvider
	key       string
	workspace string
}

// Authenticate validates key against the API root and resolves its workspace.
func (p *RoboflowProvider) Authenticate(ctx context.Context, key string) (Session, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: missing publishable key", ErrModelLoad)
	}

	var resp struct {
		Workspace string `json:"workspace"`
	}
	if err := p.getJSON(ctx, p.APIURL+"/?api_key="+url.QueryEscape(key), &resp); err != nil {
		return nil, fmt.Errorf("%w: authenticate: %v", ErrModelLoad, err)
	}

	return &roboflowSession{provider: p, key: key, workspace: resp.Workspace}, nil
}

// Load checks that the model version exists and returns a model bound to it.
func (s *roboflowSession) Load(ctx context.Context, modelID string, version int) (Model, error) {
	if modelID == "" || version <= 0 {
		return nil, fmt.Errorf("%w: invalid model %q version %d", ErrModelLoad, modelID, version)
	}

	if s.workspace != "" {
		u := fmt.Sprintf("%s/%s/%s/%d?api_key=%s", s.provider.APIURL,
			url.PathEscape(s.workspace), url.PathEscape(modelID), version, url.QueryEscape(s.key))
		if err := s.provider.getJSON(ctx, u, nil); err != nil {
			return nil, fmt.Errorf("%w: load %s/%d: %v", ErrModelLoad, modelID, version, err)
		}
	}

	return &roboflowModel{
		provider: s.provider,
		endpoint: fmt.Sprintf("%s/%s/%d", s.provider.DetectURL, url.PathEscape(modelID), version),
		key:      s.key,
	}, nil
}

type roboflowModel struct {
	provider *RoboflowProvider
	endpoint string
	key      string
}

type roboflowPrediction struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class"`
	Color      string  `json:"color"`
}

// Detect uploads the frame as a base64 JPEG and converts the predictions.
func (m *roboflowModel) Detect(ctx context.Context, frame *capture.Frame) ([]Detection, error) {
	if frame == nil || frame.Mat == nil || frame.Mat.Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrDetection)
	}

	buf, err := gocv.IMEncode(".jpg", *frame.Mat)
	if err != nil {
		return nil, fmt.Errorf("%w: encode frame: %v", ErrDetection, err)
	}
	body := base64.StdEncoding.EncodeToString(buf.GetBytes())
	buf.Close()

	return m.detectEncoded(ctx, body)
}

// detectEncoded posts an already encoded image and parses the response.
func (m *roboflowModel) detectEncoded(ctx context.Context, body string) ([]Detection, error) {
	params := url.Values{}
	params.Set("api_key", m.key)
	params.Set("confidence", strconv.Itoa(roboflowMinConfidence))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"?"+params.Encode(), strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrDetection, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.provider.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrDetection, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Predictions []roboflowPrediction `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrDetection, err)
	}

	dets := make([]Detection, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		// Roboflow reports box centers.
		dets = append(dets, Detection{
			Label:      p.Class,
			Confidence: p.Confidence,
			BoundingBox: BoundingBox{
				X:      p.X - p.Width/2,
				Y:      p.Y - p.Height/2,
				Width:  p.Width,
				Height: p.Height,
			},
			Color: p.Color,
		})
	}
	SortByConfidence(dets)

	return dets, nil
}

func (p *RoboflowProvider) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
