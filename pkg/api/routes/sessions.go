package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/railtracker/pkg/sink"
	"github.com/travigo/railtracker/pkg/tracker"
)

type sessionSummary struct {
	ID         string                 `json:"id" groups:"basic"`
	ReceivedAt time.Time              `json:"receivedAt" groups:"basic"`
	Latest     time.Time              `json:"latestFix" groups:"basic"`
	Focus      *tracker.CandidateView `json:"focus,omitempty" groups:"basic"`
}

func SessionsRouter(router fiber.Router, store *sink.LatestStore) {
	router.Get("/", listSessions(store))
	router.Get("/:identifier", getSession(store))
}

func listSessions(store *sink.LatestStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessions := []sessionSummary{}

		for _, sessionID := range store.Sessions() {
			latest, ok := store.Get(sessionID)
			if !ok {
				continue
			}

			summary := sessionSummary{
				ID:         sessionID,
				ReceivedAt: latest.ReceivedAt,
				Latest:     latest.View.Fix.Timestamp,
			}
			for _, candidate := range latest.View.Candidates {
				if candidate.Focus != nil {
					summary.Focus = &candidate
					break
				}
			}

			sessions = append(sessions, summary)
		}

		return c.JSON(sessions)
	}
}

func getSession(store *sink.LatestStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := c.Params("identifier")

		latest, ok := store.Get(identifier)
		if !ok {
			c.Status(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "Could not find a tracking session matching Identifier",
			})
		}

		groups := []string{"basic"}
		if c.QueryBool("detail") {
			groups = append(groups, "detailed")
		}

		viewReduced, err := sheriff.Marshal(&sheriff.Options{
			Groups: groups,
		}, latest.View)
		if err != nil {
			c.Status(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Sherrif could not reduce tracking result",
			})
		}

		return c.JSON(fiber.Map{
			"session":    identifier,
			"receivedAt": latest.ReceivedAt,
			"result":     viewReduced,
		})
	}
}
