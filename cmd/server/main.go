package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/rapidlearn/audiostory/internal/pkg/generator"
	"github.com/rapidlearn/audiostory/internal/pkg/pipeline"
	"github.com/rapidlearn/audiostory/internal/pkg/postgres"
	"github.com/rapidlearn/audiostory/internal/pkg/publisher"
	"github.com/rapidlearn/audiostory/internal/pkg/stories"
	"github.com/rapidlearn/audiostory/internal/pkg/synthesizer"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &stories.Data{}
	data.Port = cfg.GetInt("port")
	data.AuthSecret = cfg.GetString("auth.secret")
	var err error

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	addDBLog(dbConfig)

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.DB = db

	filer, err := publisher.NewFiler(ctx, publisher.Options{
		URL:     cfg.GetString("filer.url"),
		User:    cfg.GetString("filer.user"),
		Key:     cfg.GetString("filer.key"),
		Secure:  cfg.GetBool("filer.secure"),
		Bucket:  cfg.GetString("filer.bucket"),
		URLBase: cfg.GetString("filer.urlBase")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init audio publisher")
	}
	data.Cleaner = filer

	gen, err := generator.NewClient(cfg.GetString("completion.url"),
		cfg.GetString("completion.key"), cfg.GetString("completion.model"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init story generator")
	}

	synth, err := synthesizer.NewClientFromConfig(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init voice synthesizer")
	}

	data.Pipeline, err = pipeline.NewService(&pipeline.ServiceData{DB: db,
		Generator: gen, Synthesizer: synth, Publisher: filer,
		StageTimeout: cfg.GetDuration("pipeline.stageTimeout")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init generation pipeline")
	}

	err = stories.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

func addDBLog(dbConfig *pgxpool.Config) {
	logFunc := goapp.Log.Info().Msg
	dbConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		logFunc("before connect")
		return nil
	}
	dbConfig.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		logFunc("after connect")
		return nil
	}
	dbConfig.BeforeAcquire = func(ctx context.Context, c *pgx.Conn) bool {
		logFunc("before acquire")
		return true
	}
	dbConfig.AfterRelease = func(c *pgx.Conn) bool {
		logFunc("after release")
		return true
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
                      _ _
     ____ ___  ______/ (_)___
    / __ ` + "`" + `/ / / / __  / / __ \
   / /_/ / /_/ / /_/ / / /_/ /
   \__,_/\__,_/\__,_/_/\____/

          _____/ /_____  _______  __
         / ___/ __/ __ \/ ___/ / / /
        (__  ) /_/ /_/ / /  / /_/ /
       /____/\__/\____/_/   \__, /   v: %s
                           /____/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/rapidlearn/audiostory"))
}
