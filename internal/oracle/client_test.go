package oracle

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secure-bank/internal/circuitbreaker"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 2*time.Second, circuitbreaker.New(2, time.Minute), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScoreRisk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/risk/score", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var signals models.BehavioralSignals
		require.NoError(t, json.NewDecoder(r.Body).Decode(&signals))
		assert.Equal(t, []float64{110, 120}, signals.KeyHoldTimes)

		_, _ = w.Write([]byte(`{"riskScore":0.25,"reasons":["typing matches baseline"]}`))
	})

	got, err := c.ScoreRisk(t.Context(), models.BehavioralSignals{KeyHoldTimes: []float64{110, 120}})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, got.RiskScore, 1e-9)
	assert.Equal(t, []string{"typing matches baseline"}, got.Reasons)
}

func TestScoreRisk_OutOfRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"riskScore":1.7,"reasons":[]}`))
	})

	_, err := c.ScoreRisk(t.Context(), models.BehavioralSignals{})
	assert.ErrorIs(t, err, errors.ErrOracleMalformed)
}

func TestScoreRisk_MissingScore(t *testing.T) {
	bodies := map[string]string{
		"empty object":  `{}`,
		"null score":    `{"riskScore":null}`,
		"renamed field": `{"score":0.95,"reasons":["bot"]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			got, err := c.ScoreRisk(t.Context(), models.BehavioralSignals{})
			assert.ErrorIs(t, err, errors.ErrOracleMalformed)
			assert.Nil(t, got)
		})
	}
}

func TestScoreRisk_ZeroIsValid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"riskScore":0,"reasons":[]}`))
	})

	got, err := c.ScoreRisk(t.Context(), models.BehavioralSignals{})
	require.NoError(t, err)
	assert.Zero(t, got.RiskScore)
}

func TestCall_Non2xxIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.VerifySignature(t.Context(), "data:image/png;base64,AAAA")
	assert.ErrorIs(t, err, errors.ErrOracleUnavailable)
}

func TestCall_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.VerifyVoice(t.Context(), VoiceCheck{Phrase: "open sesame"})
	assert.ErrorIs(t, err, errors.ErrOracleMalformed)
}

func TestCall_BreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 2; i++ {
		_, err := c.Ask(t.Context(), "hello")
		require.Error(t, err)
	}

	_, err := c.Ask(t.Context(), "hello")
	assert.ErrorIs(t, err, errors.ErrOracleUnavailable)
	assert.Equal(t, 2, calls)
}

func TestTranscribe_Normalizes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "data:audio/webm;base64,AAAA", body["audioDataUri"])
		_, _ = w.Write([]byte(`{"text":"  \"my voice is my password\"  "}`))
	})

	text, err := c.Transcribe(t.Context(), "data:audio/webm;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "my voice is my password", text)
}

func TestSynthesize_MissingAudio(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Synthesize(t.Context(), "hello")
	assert.ErrorIs(t, err, errors.ErrOracleMalformed)
}

func TestNormalizeTranscript(t *testing.T) {
	assert.Equal(t, "hello world", NormalizeTranscript(`"hello world"`))
	assert.Equal(t, "it's fine", NormalizeTranscript(` 'it's fine' `))
	assert.Equal(t, "", NormalizeTranscript(`  ""  `))
	assert.Equal(t, "plain", NormalizeTranscript("plain"))
}
