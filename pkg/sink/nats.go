package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/tracker"
	"github.com/travigo/railtracker/pkg/util"
)

const defaultNATSURL = nats.DefaultURL
const defaultSubjectPrefix = "railtracker"

// Subjects only carry a sanitised token, so the session ID travels in a header
const (
	SessionHeader = "Railtracker-Session"
	ResetHeader   = "Railtracker-Reset"
)

// NATSSink publishes every result as JSON on <prefix>.<session>
type NATSSink struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewNATSSink() (*NATSSink, error) {
	env := util.GetEnvironmentVariables()
	url := util.EnvString(env, "RAILTRACKER_NATS_URL", defaultNATSURL)

	conn, err := nats.Connect(url,
		nats.Name("railtracker"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info().Str("url", conn.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", url).Msg("NATS sink connected")

	return &NATSSink{
		conn:          conn,
		subjectPrefix: util.EnvString(env, "RAILTRACKER_NATS_SUBJECT_PREFIX", defaultSubjectPrefix),
	}, nil
}

func (n *NATSSink) Name() string {
	return "nats"
}

func (n *NATSSink) Publish(ctx context.Context, sessionID string, result *tracker.TrackingResult) error {
	message, err := json.Marshal(result.View())
	if err != nil {
		return err
	}

	msg := nats.NewMsg(Subject(n.subjectPrefix, sessionID))
	msg.Header.Set(SessionHeader, sessionID)
	msg.Data = message

	return n.conn.PublishMsg(msg)
}

// Reset tells mirrors that the session started a new trip
func (n *NATSSink) Reset(ctx context.Context, sessionID string) error {
	msg := nats.NewMsg(Subject(n.subjectPrefix, sessionID))
	msg.Header.Set(SessionHeader, sessionID)
	msg.Header.Set(ResetHeader, "true")

	return n.conn.PublishMsg(msg)
}

// Mirror keeps store up to date with the results published by every session,
// so an API process can serve them without running the trackers itself
func (n *NATSSink) Mirror(store *LatestStore) (*nats.Subscription, error) {
	return n.conn.Subscribe(n.subjectPrefix+".>", mirrorHandler(n.subjectPrefix, store))
}

func mirrorHandler(prefix string, store *LatestStore) nats.MsgHandler {
	return func(msg *nats.Msg) {
		sessionID := msg.Header.Get(SessionHeader)
		if sessionID == "" {
			sessionID = strings.TrimPrefix(msg.Subject, prefix+".")
		}

		if msg.Header.Get(ResetHeader) != "" {
			store.Delete(sessionID)
			return
		}

		var view tracker.ResultView
		if err := json.Unmarshal(msg.Data, &view); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("Failed to decode mirrored result")
			return
		}

		store.Store(sessionID, view, time.Now())
	}
}

func (n *NATSSink) Close() {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

// Subject builds the subject of a session, replacing characters that are
// not allowed in a NATS token
func Subject(prefix string, sessionID string) string {
	token := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_").Replace(strings.TrimSpace(sessionID))
	if token == "" {
		token = "_"
	}

	return fmt.Sprintf("%s.%s", prefix, token)
}
