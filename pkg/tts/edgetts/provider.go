package edgetts

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"podcastgo/pkg/config"
	"podcastgo/pkg/tracker"
	"podcastgo/pkg/tts"
)

const (
	trackerName = "edge-tts"
	dialRetries = 3
)

// Provider implements tts.Provider for Microsoft Edge TTS.
type Provider struct {
	cfg     config.EdgeTTSConfig
	tracker *tracker.Tracker
	dialer  *websocket.Dialer
	now     func() time.Time
}

// NewProvider creates a new Edge TTS provider.
func NewProvider(cfg config.EdgeTTSConfig, t *tracker.Tracker) *Provider {
	return &Provider{cfg: cfg, tracker: t, dialer: websocket.DefaultDialer, now: time.Now}
}

// Synthesize streams an MP3 for text into outputPath.
func (p *Provider) Synthesize(ctx context.Context, text, voice, outputPath string) (string, error) {
	if voice == "" {
		return "", tts.NewError(tts.KindLaunch, fmt.Errorf("voice ID is required"))
	}

	start := time.Now()

	conn, err := p.dial(ctx)
	if err != nil {
		p.trackFailure(ctx)
		return "", err
	}
	defer conn.Close()

	// Unblock reads when the context ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := p.sendConfig(conn); err != nil {
		return "", err
	}

	requestID := strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := p.sendSSML(conn, voice, text, requestID); err != nil {
		return "", err
	}

	if err := p.consumeResponses(ctx, conn, file); err != nil {
		p.trackFailure(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("edge tts aborted: %w", ctxErr)
		}
		return "", err
	}

	if p.tracker != nil {
		p.tracker.TrackSuccess(trackerName, time.Since(start))
	}
	return "mp3", nil
}

func (p *Provider) trackFailure(ctx context.Context) {
	if p.tracker == nil {
		return
	}
	if ctx.Err() == context.DeadlineExceeded {
		p.tracker.TrackTimeout(trackerName)
		return
	}
	p.tracker.TrackFailure(trackerName)
}

// endpoint builds the websocket URL, failing if any setting is missing.
func (p *Provider) endpoint() (string, error) {
	missing := []string{}
	for name, v := range map[string]string{
		"base_url":             p.cfg.BaseURL,
		"trusted_client_token": p.cfg.TrustedClientToken,
		"sec_ms_gec_version":   p.cfg.SecMSGecVersion,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", tts.NewError(tts.KindLaunch, fmt.Errorf("edge tts settings missing: %s", strings.Join(missing, ", ")))
	}

	token := generateSecMSGec(p.cfg.TrustedClientToken, p.now())
	return fmt.Sprintf("%s?TrustedClientToken=%s&Sec-MS-GEC=%s&Sec-MS-GEC-Version=%s",
		p.cfg.BaseURL, p.cfg.TrustedClientToken, token, p.cfg.SecMSGecVersion), nil
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	url, err := p.endpoint()
	if err != nil {
		return nil, err
	}
	if p.cfg.Origin == "" || p.cfg.UserAgent == "" {
		return nil, tts.NewError(tts.KindLaunch, fmt.Errorf("edge tts origin and user_agent are required"))
	}

	header := http.Header{}
	header.Set("Origin", p.cfg.Origin)
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("User-Agent", p.cfg.UserAgent)
	header.Set("Accept-Encoding", "gzip, deflate, br, zstd")
	header.Set("Accept-Language", "en-US,en;q=0.9")

	// MUID Cookie
	muid := strings.ReplaceAll(uuid.New().String(), "-", "")
	header.Set("Cookie", fmt.Sprintf("muid=%s", muid))

	var dialErr error
	for i := 0; i < dialRetries; i++ {
		conn, resp, err := p.dialer.DialContext(ctx, url, header)
		if err == nil {
			return conn, nil
		}
		dialErr = err
		if resp != nil {
			slog.Warn("EdgeTTS: handshake failure", "status", resp.Status, "status_code", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, tts.NewFatalError(resp.StatusCode, fmt.Sprintf("edge tts handshake rejected: %s", resp.Status))
			}
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("websocket dial aborted: %w", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("websocket dial failed after retries: %w", dialErr)
}

// generateSecMSGec derives the Sec-MS-GEC token: SHA-256 over the Windows
// file-time tick count, rounded down to five minutes, plus the client token.
func generateSecMSGec(trustedClientToken string, now time.Time) string {
	ticks := float64(now.Unix()) + 11644473600
	ticks -= float64(int64(ticks) % 300)
	ticks *= 1e7

	strToHash := fmt.Sprintf("%.0f%s", ticks, trustedClientToken)

	hash := sha256.Sum256([]byte(strToHash))
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}

func (p *Provider) sendConfig(conn *websocket.Conn) error {
	configMsg := "Content-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n{\"context\":{\"synthesis\":{\"audio\":{\"metadataoptions\":{\"sentenceBoundaryEnabled\":\"false\",\"wordBoundaryEnabled\":\"false\"},\"outputFormat\":\"audio-24khz-48kbitrate-mono-mp3\"}}}}"
	if err := conn.WriteMessage(websocket.TextMessage, []byte(configMsg)); err != nil {
		return fmt.Errorf("failed to send speech.config: %w", err)
	}
	return nil
}

func (p *Provider) sendSSML(conn *websocket.Conn, voice, text, requestID string) error {
	ssml := buildSSML(voice, text)
	tts.Log("EDGETTS", ssml, 0, nil)

	ssmlMsg := fmt.Sprintf("X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nPath:ssml\r\n\r\n%s", requestID, ssml)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMsg)); err != nil {
		return fmt.Errorf("failed to send ssml: %w", err)
	}
	return nil
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func buildSSML(voice, text string) string {
	return fmt.Sprintf("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>",
		localeOf(voice), voice, ssmlEscaper.Replace(text))
}

// localeOf reads the locale prefix of a voice name like "en-GB-SoniaNeural".
func localeOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) == 3 && len(parts[0]) == 2 && len(parts[1]) == 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

// consumeResponses copies audio frames to w until the service signals turn.end.
func (p *Provider) consumeResponses(ctx context.Context, conn *websocket.Conn, w io.Writer) error {
	written := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message failed: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				if written == 0 {
					return tts.NewError(tts.KindDecode, fmt.Errorf("edge tts returned no audio"))
				}
				return nil
			}
		case websocket.BinaryMessage:
			n, err := p.handleBinaryMessage(data, w)
			if err != nil {
				return err
			}
			written += n
		}
	}
}

// handleBinaryMessage strips the length-prefixed header and writes the audio payload.
func (p *Provider) handleBinaryMessage(data []byte, w io.Writer) (int, error) {
	if len(data) < 2 {
		return 0, nil
	}
	headerLength := int(binary.BigEndian.Uint16(data[:2]))
	if len(data) < 2+headerLength {
		return 0, nil
	}
	audioData := data[2+headerLength:]
	if len(audioData) == 0 {
		return 0, nil
	}
	n, err := w.Write(audioData)
	if err != nil {
		return n, fmt.Errorf("write audio data failed: %w", err)
	}
	return n, nil
}

// Voices returns the neural voices offered for selection.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	return []tts.Voice{
		{ID: "en-US-AvaMultilingualNeural", Name: "Ava (Multilingual)", Language: "en-US", IsNeural: true},
		{ID: "en-US-AndrewMultilingualNeural", Name: "Andrew (Multilingual)", Language: "en-US", IsNeural: true},
		{ID: "en-GB-SoniaNeural", Name: "Sonia (UK)", Language: "en-GB", IsNeural: true},
		{ID: "fr-FR-VivienneNeural", Name: "Vivienne (France)", Language: "fr-FR", IsNeural: true},
		{ID: "de-DE-SeraphinaNeural", Name: "Seraphina (Germany)", Language: "de-DE", IsNeural: true},
	}, nil
}
