package tracking

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/outbound/internal/domain"
	"github.com/ignite/outbound/internal/metrics"
	"github.com/ignite/outbound/internal/pkg/logger"
)

// PixelGIF is a 1x1 transparent GIF89a.
var PixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Path is the public tracking route.
const Path = "/track-email"

const recordTimeout = 5 * time.Second

// Handler answers tracking hits. It never fails visibly: the response is
// always the pixel or a redirect, whatever happens to the analytics write.
type Handler struct {
	rec Recorder
	log *logger.Logger
	now func() time.Time
}

func NewHandler(rec Recorder) *Handler {
	return &Handler{rec: rec, log: logger.New("tracking"), now: time.Now}
}

// Routes mounts the tracking endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get(Path, h.ServeHTTP)
	r.Get("/health", h.HandleHealth)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eventType := q.Get("type")
	campaignID := q.Get("cid")
	recipientID := q.Get("rid")
	target := q.Get("url")

	if eventType != "" && campaignID != "" {
		h.record(r, eventType, campaignID, recipientID, target)
	}

	if eventType == string(domain.EventClick) && target != "" {
		w.Header().Set("Location", target)
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.WriteHeader(http.StatusFound)
		return
	}
	servePixel(w)
}

func (h *Handler) record(r *http.Request, eventType, campaignID, recipientID, target string) {
	t, ok := domain.ParseAnalyticsEventType(eventType)
	if !ok || t == domain.EventSent {
		metrics.IncTrackingEvent(eventType, "ignored")
		return
	}

	evt := domain.AnalyticsEvent{
		ID:          uuid.NewString(),
		CampaignID:  campaignID,
		RecipientID: recipientID,
		EventType:   t,
		Metadata: map[string]string{
			"ip":         realIP(r),
			"user_agent": r.UserAgent(),
		},
		CreatedAt: h.now().UTC(),
	}
	if target != "" {
		evt.Metadata["url"] = target
	}

	ctx, cancel := context.WithTimeout(r.Context(), recordTimeout)
	defer cancel()
	if err := h.rec.Record(ctx, evt); err != nil {
		metrics.IncTrackingEvent(eventType, "failed")
		h.log.Warn("tracking record failed", "type", eventType, "campaign_id", campaignID, "error", err)
		return
	}
	metrics.IncTrackingEvent(eventType, "recorded")
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(PixelGIF)
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
