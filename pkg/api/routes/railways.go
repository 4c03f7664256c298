package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/railway"
)

type railwayDetail struct {
	ID         railway.RailwayID     `json:"id"`
	Title      railway.Title         `json:"title"`
	Color      string                `json:"color"`
	Ascending  railway.RailDirection `json:"ascending"`
	Descending railway.RailDirection `json:"descending"`

	StationDetails []*railway.Station `json:"stations"`
}

func RailwaysRouter(router fiber.Router, index railway.Index) {
	router.Get("/", listRailways(index))
	router.Get("/:identifier", getRailway(index))
}

func listRailways(index railway.Index) fiber.Handler {
	return func(c *fiber.Ctx) error {
		railwayIDs, err := index.Railways(c.UserContext())
		if err != nil {
			log.Error().Err(err).Msg("Failed to list railways")
			c.Status(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Could not list railways",
			})
		}

		railways := []*railway.Railway{}
		for _, railwayID := range railwayIDs {
			line, err := index.RailwayByID(c.UserContext(), railwayID)
			if err != nil {
				log.Error().Err(err).Str("railway", string(railwayID)).Msg("Failed to get railway")
				continue
			}
			railways = append(railways, line)
		}

		return c.JSON(railways)
	}
}

func getRailway(index railway.Index) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := railway.RailwayID(c.Params("identifier"))

		line, err := index.RailwayByID(c.UserContext(), identifier)
		if errors.Is(err, railway.ErrNotFound) {
			c.Status(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "Could not find Railway matching Identifier",
			})
		} else if err != nil {
			c.Status(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		var detail railwayDetail
		if err := copier.CopyWithOption(&detail, line, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
			c.Status(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		detail.StationDetails, err = index.StationsForRailway(c.UserContext(), identifier)
		if err != nil {
			c.Status(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(detail)
	}
}
