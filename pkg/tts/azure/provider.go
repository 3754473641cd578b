package azure

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"podcastgo/pkg/config"
	"podcastgo/pkg/tracker"
	"podcastgo/pkg/tts"
)

const trackerName = "azure-speech"

var (
	reLangEnd     = regexp.MustCompile(`([^.?!,])</lang>`)
	reID          = regexp.MustCompile(`\s+xml:ID[^>]*`)
	reSpeakOpen   = regexp.MustCompile(`(?i)<speak[^>]*>`)
	reSpeakClose  = regexp.MustCompile(`(?i)</speak>`)
	reVoiceOpen   = regexp.MustCompile(`(?i)<voice[^>]*>`)
	reVoiceClose  = regexp.MustCompile(`(?i)</voice>`)
	reAnyTag      = regexp.MustCompile(`<[^>]*>`)
	defaultVoices = []tts.Voice{
		{ID: "en-US-AvaNeural", Name: "Ava", Language: "en-US", IsNeural: true},
		{ID: "en-US-AndrewNeural", Name: "Andrew", Language: "en-US", IsNeural: true},
		{ID: "en-US-EmmaNeural", Name: "Emma", Language: "en-US", IsNeural: true},
		{ID: "en-US-BrianNeural", Name: "Brian", Language: "en-US", IsNeural: true},
		{ID: "en-GB-SoniaNeural", Name: "Sonia (UK)", Language: "en-GB", IsNeural: true},
		{ID: "en-GB-RyanNeural", Name: "Ryan (UK)", Language: "en-GB", IsNeural: true},
	}
)

// Provider implements tts.Provider for Azure Speech.
type Provider struct {
	key      string
	region   string
	language string
	client   *http.Client
	url      string
	tracker  *tracker.Tracker
}

// NewProvider creates a new Azure Speech TTS provider.
func NewProvider(cfg config.AzureSpeechConfig, t *tracker.Tracker) *Provider {
	url := fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	return &Provider{
		key:      cfg.Key,
		region:   cfg.Region,
		language: language,
		client:   &http.Client{},
		url:      url,
		tracker:  t,
	}
}

// Synthesize generates speech from text using Azure Speech, writing MP3 to outputPath.
func (p *Provider) Synthesize(ctx context.Context, text, voiceID, outputPath string) (string, error) {
	if voiceID == "" {
		return "", tts.NewError(tts.KindLaunch, fmt.Errorf("no voice ID given for Azure Speech"))
	}
	if p.key == "" || p.region == "" {
		return "", tts.NewError(tts.KindLaunch, fmt.Errorf("azure speech key and region are required"))
	}

	ssml := p.buildSSML(voiceID, text)

	req, err := http.NewRequestWithContext(ctx, "POST", p.url, bytes.NewBufferString(ssml))
	if err != nil {
		return "", tts.NewError(tts.KindLaunch, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", p.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "audio-24khz-160kbitrate-mono-mp3")
	req.Header.Set("User-Agent", "PodcastGo")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		tts.Log("AZURE", ssml, 0, err)
		p.trackFailure(ctx)
		return "", fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		tts.Log("AZURE", ssml, resp.StatusCode, nil)
		body, err := io.ReadAll(resp.Body)
		bodyStr := string(body)
		if err != nil {
			bodyStr = fmt.Sprintf("[failed to read body: %v]", err)
		}
		if bodyStr == "" {
			bodyStr = "[empty body]"
		}
		p.trackFailure(ctx)

		errMsg := fmt.Sprintf("azure speech api error (status %d): %s", resp.StatusCode, bodyStr)
		return "", tts.NewFatalError(resp.StatusCode, errMsg)
	}

	tts.Log("AZURE", ssml, http.StatusOK, nil)

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		p.trackFailure(ctx)
		return "", fmt.Errorf("failed to write audio to file: %w", err)
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

// Voices returns the neural voices offered for selection.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	return append([]tts.Voice(nil), defaultVoices...), nil
}

// validateSSML checks if the SSML string is well-formed XML.
func validateSSML(ssml string) error {
	decoder := xml.NewDecoder(bytes.NewReader([]byte(ssml)))
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) wrap(vid, body string) string {
	return fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xmlns:mstts='https://www.w3.org/2001/mstts' xml:lang='%s'><voice name='%s'>%s</voice></speak>`,
		p.language, vid, body,
	)
}

// buildSSML wraps text for the voice. Plain text is escaped; inline SSML from
// an edited script is kept when it parses and stripped to text when it doesn't.
func (p *Provider) buildSSML(vid, text string) string {
	if !reAnyTag.MatchString(text) {
		var buf bytes.Buffer
		_ = xml.EscapeText(&buf, []byte(text))
		return p.wrap(vid, buf.String())
	}

	text = repairSSML(text)

	// Punctuation before </lang> stops multilingual voices truncating the last word.
	processed := reLangEnd.ReplaceAllString(text, `$1,</lang>`)

	ssml := p.wrap(vid, processed)
	if err := validateSSML(ssml); err != nil {
		var buf bytes.Buffer
		_ = xml.EscapeText(&buf, []byte(reAnyTag.ReplaceAllString(text, "")))
		return p.wrap(vid, buf.String())
	}
	return ssml
}

// repairSSML removes tags that the wrapper adds itself and attributes Azure rejects.
func repairSSML(text string) string {
	text = reID.ReplaceAllString(text, "")
	text = reSpeakOpen.ReplaceAllString(text, "")
	text = reSpeakClose.ReplaceAllString(text, "")
	text = reVoiceOpen.ReplaceAllString(text, "")
	text = reVoiceClose.ReplaceAllString(text, "")
	return text
}
