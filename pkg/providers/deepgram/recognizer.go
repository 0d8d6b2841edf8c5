package deepgram

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/voxkey/voxkey/pkg/adapters/recognizer"
	"github.com/voxkey/voxkey/pkg/errorsx"
	"github.com/voxkey/voxkey/pkg/frames"
	"github.com/voxkey/voxkey/pkg/logging"
	"github.com/voxkey/voxkey/pkg/resilience"
)

type Config struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Language   string `mapstructure:"language"`
	SampleRate int    `mapstructure:"sample_rate"`
	Interim    bool   `mapstructure:"interim"`
}

// Recognizer adapts Deepgram's streaming websocket transcription to the
// frame-at-a-time recognizer contract. "Model loading" maps to connection
// establishment: the engine is loaded once the socket is open.
type Recognizer struct {
	cfg Config

	dgClient   *client.WSCallback
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	ctx        context.Context
	cancel     context.CancelFunc

	results chan recognizer.Result
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger

	mu       sync.Mutex
	loading  bool
	loaded   bool
	progress float64
	lastErr  string
}

func New(cfg Config) *Recognizer {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &Recognizer{
		cfg:     cfg,
		results: make(chan recognizer.Result, 64),
		breaker: resilience.NewCircuitBreaker(5, 10*time.Second),
		logger:  logging.NewComponentLogger(slog.Default(), "deepgram_recognizer"),
	}
}

func (r *Recognizer) Name() string { return "deepgram_streaming" }

// Start connects asynchronously. Progress moves from 0 to 1 as the client
// is created and the socket opens.
func (r *Recognizer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.pipeReader, r.pipeWriter = io.Pipe()

	r.mu.Lock()
	r.loading = true
	r.progress = 0
	r.mu.Unlock()

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:          r.cfg.Model,
		Language:       r.cfg.Language,
		Encoding:       "linear16",
		SampleRate:     r.cfg.SampleRate,
		InterimResults: r.cfg.Interim,
		SmartFormat:    false,
		Punctuate:      false,
	}

	cb := &callback{parent: r}
	dgClient, err := client.NewWSUsingCallback(r.ctx, r.cfg.APIKey, clientOptions, transcriptOptions, cb)
	if err != nil {
		r.failLoad(fmt.Sprintf("client create: %v", err))
		return errorsx.Wrap(err, errorsx.ReasonModelLoad)
	}
	r.dgClient = dgClient
	r.setProgress(0.5)

	go func() {
		if connected := r.dgClient.Connect(); !connected {
			r.failLoad("connection failed")
			return
		}
		go func() {
			if err := r.dgClient.Stream(r.pipeReader); err != nil && r.ctx.Err() == nil {
				r.logger.Error("stream error", "error", err)
			}
		}()
	}()
	return nil
}

func (r *Recognizer) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.pipeWriter != nil {
		_ = r.pipeWriter.Close()
	}
	if r.dgClient != nil {
		r.dgClient.Stop()
	}
	return nil
}

func (r *Recognizer) TranscribeWithVAD(frame *frames.AudioFrame, isSpeech bool) (recognizer.Result, error) {
	return r.transcribe(frame, isSpeech)
}

// TranscribeWithNoiseFiltering delegates to the plain path; noise handling
// happens server-side.
func (r *Recognizer) TranscribeWithNoiseFiltering(frame *frames.AudioFrame, isSpeech bool) (recognizer.Result, error) {
	return r.transcribe(frame, isSpeech)
}

func (r *Recognizer) transcribe(frame *frames.AudioFrame, _ bool) (recognizer.Result, error) {
	if !r.IsModelLoaded() {
		return recognizer.Result{}, errorsx.Wrap(fmt.Errorf("not connected"), errorsx.ReasonModelLoading)
	}
	if !r.breaker.Allow() {
		return recognizer.Result{}, errorsx.Wrap(fmt.Errorf("transcription suspended"), errorsx.ReasonTranscribe)
	}

	if _, err := r.pipeWriter.Write(pcm16(frame.RawSamples())); err != nil {
		r.breaker.OnError(err)
		r.setLastErr(err.Error())
		return recognizer.Result{}, errorsx.Wrap(err, errorsx.ReasonTranscribe)
	}
	r.breaker.OnSuccess()

	// Hand back whatever the socket has produced so far; transcription is
	// asynchronous relative to frame delivery.
	select {
	case res := <-r.results:
		return res, nil
	default:
		return recognizer.Result{}, nil
	}
}

// Reset drops any queued hypotheses from the previous session.
func (r *Recognizer) Reset() {
	for {
		select {
		case <-r.results:
		default:
			return
		}
	}
}

func (r *Recognizer) IsLoading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

func (r *Recognizer) LoadingProgress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

func (r *Recognizer) IsModelLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

func (r *Recognizer) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Recognizer) setProgress(p float64) {
	r.mu.Lock()
	r.progress = p
	r.mu.Unlock()
}

func (r *Recognizer) markLoaded() {
	r.mu.Lock()
	r.loading = false
	r.loaded = true
	r.progress = 1
	r.mu.Unlock()
}

func (r *Recognizer) failLoad(msg string) {
	r.mu.Lock()
	r.loading = false
	r.loaded = false
	r.lastErr = msg
	r.mu.Unlock()
	r.logger.Error("connection failed", "error", msg)
}

func (r *Recognizer) setLastErr(msg string) {
	r.mu.Lock()
	r.lastErr = msg
	r.mu.Unlock()
}

// pcm16 converts normalized float samples to 16-bit little-endian PCM.
func pcm16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(s*math.MaxInt16)))
	}
	return out
}

type callback struct {
	parent     *Recognizer
	metaLogged bool
}

func (c *callback) Open(*msginterfaces.OpenResponse) error {
	c.parent.markLoaded()
	c.parent.logger.Info("connection opened")
	return nil
}

func (c *callback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	alt := mr.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return nil
	}

	res := recognizer.Result{
		Raw:         alt.Transcript,
		Final:       mr.IsFinal || mr.SpeechFinal,
		Confidence:  alt.Confidence,
		TimestampMS: time.Now().UnixMilli(),
	}
	select {
	case c.parent.results <- res:
	default:
		c.parent.logger.Warn("result queue full, hypothesis dropped")
	}
	return nil
}

func (c *callback) Metadata(md *msginterfaces.MetadataResponse) error {
	if !c.metaLogged {
		c.metaLogged = true
		c.parent.logger.Info("metadata received", "request_id", md.RequestID)
	}
	return nil
}

func (c *callback) SpeechStarted(*msginterfaces.SpeechStartedResponse) error {
	c.parent.logger.Debug("speech started event")
	return nil
}

func (c *callback) UtteranceEnd(*msginterfaces.UtteranceEndResponse) error {
	c.parent.logger.Debug("utterance end event")
	return nil
}

func (c *callback) Close(*msginterfaces.CloseResponse) error {
	c.parent.logger.Info("connection closed")
	return nil
}

func (c *callback) Error(er *msginterfaces.ErrorResponse) error {
	c.parent.setLastErr(er.ErrMsg)
	c.parent.logger.Error("transcription error", "code", er.ErrCode, "message", er.ErrMsg)
	return nil
}

func (c *callback) UnhandledEvent(data []byte) error {
	c.parent.logger.Debug("unhandled event", "data", string(data))
	return nil
}

var _ recognizer.Recognizer = (*Recognizer)(nil)
