package stories

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rapidlearn/audiostory/internal/pkg/auth"
	"github.com/rapidlearn/audiostory/internal/pkg/persistence"
	"github.com/rapidlearn/audiostory/internal/pkg/status"
	"github.com/rapidlearn/audiostory/internal/pkg/utils"
)

const listLimit = 50

// DB provides story persistence
type DB interface {
	InsertStory(ctx context.Context, item *persistence.Story) error
	LoadStory(ctx context.Context, id string) (*persistence.Story, error)
	ListStories(ctx context.Context, ownerID string, limit int) ([]*persistence.Story, error)
	DeleteStory(ctx context.Context, id string) (bool, error)
}

// Starter triggers the detached generation pipeline
type Starter interface {
	StartGeneration(story *persistence.Story)
}

// FileCleaner removes published audio
type FileCleaner interface {
	Remove(ctx context.Context, id string) error
}

// Data keeps data required for service work
type Data struct {
	Port       int
	AuthSecret string
	DB         DB
	Pipeline   Starter
	Cleaner    FileCleaner
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP audio story service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.DB == nil {
		return errors.New("no DB")
	}
	if data.Pipeline == nil {
		return errors.New("no pipeline")
	}
	if data.Cleaner == nil {
		return errors.New("no cleaner")
	}
	if data.AuthSecret == "" {
		return errors.New("no auth secret")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("audiostory", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/live", live(data))
	gr := e.Group("", auth.JWT(data.AuthSecret))
	gr.POST("/stories", create(data))
	gr.GET("/stories", list(data))
	gr.GET("/stories/:id", get(data))
	gr.DELETE("/stories/:id", drop(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

type createInput struct {
	Topic      string `json:"topic"`
	Doubt      string `json:"doubt"`
	Complexity string `json:"complexity"`
}

type createResult struct {
	ID            string `json:"id"`
	Message       string `json:"message"`
	EstimatedTime string `json:"estimatedTime"`
}

type storyResult struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Doubt      string    `json:"doubt"`
	Complexity string    `json:"complexity"`
	Status     string    `json:"status"`
	StoryText  string    `json:"storyText,omitempty"`
	AudioURL   string    `json:"audioUrl,omitempty"`
	Duration   int32     `json:"durationSeconds,omitempty"`
	Error      string    `json:"errorMessage,omitempty"`
	Created    time.Time `json:"createdAt"`
	Updated    time.Time `json:"updatedAt"`
}

type listResult struct {
	Stories []*storyResult `json:"stories"`
	Count   int            `json:"count"`
}

func create(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("create method")()
		ctx := c.Request().Context()

		var inp createInput
		if err := c.Bind(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		if err := validateInput(&inp); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		now := time.Now()
		story := &persistence.Story{ID: uuid.New().String(), OwnerID: auth.OwnerID(c),
			Topic: inp.Topic, Doubt: inp.Doubt, Complexity: inp.Complexity,
			Status: status.Processing.String(), Created: now, Updated: now}
		if err := data.DB.InsertStory(ctx, story); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		goapp.Log.Info().Str("ID", story.ID).Str("topic", goapp.Sanitize(story.Topic)).Msg("story created")

		data.Pipeline.StartGeneration(story)

		return c.JSON(http.StatusAccepted, createResult{ID: story.ID,
			Message: "Story generation started", EstimatedTime: "1-2 minutes"})
	}
}

func get(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("get method")()

		story, err := loadOwned(c, data)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, mapStory(story))
	}
}

func list(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("list method")()

		items, err := data.DB.ListStories(c.Request().Context(), auth.OwnerID(c), listLimit)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := listResult{Stories: make([]*storyResult, 0, len(items))}
		for _, item := range items {
			res.Stories = append(res.Stories, mapStory(item))
		}
		res.Count = len(res.Stories)
		return c.JSON(http.StatusOK, res)
	}
}

func drop(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("delete method")()
		ctx := c.Request().Context()

		story, err := loadOwned(c, data)
		if err != nil {
			return err
		}
		found, err := data.DB.DeleteStory(ctx, story.ID)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if !found {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		// audio removal is cleanup only, a failure must not undo the delete
		if err := data.Cleaner.Remove(ctx, story.ID); err != nil {
			goapp.Log.Warn().Err(err).Str("ID", story.ID).Msg("can't remove audio")
		}
		goapp.Log.Info().Str("ID", story.ID).Msg("story deleted")
		return c.JSON(http.StatusOK, createResult{ID: story.ID, Message: "Story deleted"})
	}
}

func loadOwned(c echo.Context, data *Data) (*persistence.Story, error) {
	id := c.Param("id")
	if id == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "No ID")
	}
	story, err := data.DB.LoadStory(c.Request().Context(), id)
	if err != nil {
		goapp.Log.Error().Err(err).Send()
		return nil, echo.NewHTTPError(http.StatusInternalServerError)
	}
	if story == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	if story.OwnerID != auth.OwnerID(c) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not an owner")
	}
	return story, nil
}

var allowedComplexity = map[string]bool{"easy": true, "beginner": true,
	"intermediate": true, "advanced": true}

func validateInput(inp *createInput) error {
	inp.Topic = strings.TrimSpace(inp.Topic)
	inp.Doubt = strings.TrimSpace(inp.Doubt)
	if inp.Topic == "" {
		return errors.New("no topic")
	}
	if len(inp.Topic) > 100 {
		return errors.New("topic must be under 100 characters")
	}
	if inp.Doubt == "" {
		return errors.New("no doubt")
	}
	if len(inp.Doubt) > 300 {
		return errors.New("doubt must be under 300 characters")
	}
	if inp.Complexity == "" {
		inp.Complexity = "intermediate"
	}
	if !allowedComplexity[inp.Complexity] {
		return fmt.Errorf("unknown complexity '%s'", inp.Complexity)
	}
	return nil
}

func mapStory(item *persistence.Story) *storyResult {
	return &storyResult{ID: item.ID, Topic: item.Topic, Doubt: item.Doubt,
		Complexity: item.Complexity, Status: item.Status,
		StoryText: utils.FromSQLStr(item.StoryText), AudioURL: utils.FromSQLStr(item.AudioURL),
		Duration: utils.FromSQLInt32OrZero(item.Duration), Error: utils.FromSQLStr(item.Error),
		Created: item.Created, Updated: item.Updated}
}
