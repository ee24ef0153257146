package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/escolaris/notas/apps/api/echo"
	"github.com/escolaris/notas/core"
	"github.com/escolaris/notas/core/academic"
	"github.com/escolaris/notas/core/alert"
	"github.com/escolaris/notas/core/grading"
	emailsvc "github.com/escolaris/notas/services/email"
	logsvc "github.com/escolaris/notas/services/logger"
	"github.com/escolaris/notas/storage/database"
	sqlxrepos "github.com/escolaris/notas/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if err := run(std); err != nil {
		std.Fatalf("%+v", err)
	}
}

func run(std *log.Logger) error {
	conf := core.NewConfig(core.Getwd())

	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!(conf.Debug || conf.TestMode))

	// set up validators
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	academicRepo := sqlxrepos.NewAcademicRepository(db)
	academicSvc := academic.NewService(academicRepo)
	gradingSvc := grading.NewService(sqlxrepos.NewGradingRepository(db), academicRepo)
	alertSvc := alert.NewService(sqlxrepos.NewAlertRepository(db), academicRepo, gradingSvc, mailSvc, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:        conf.ServerAddress(),
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		AcademicSvc:    academicSvc,
		GradingSvc:     gradingSvc,
		AlertSvc:       alertSvc,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening on " + conf.ServerAddress())
		serverErrors <- app.Start()
	}()

	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")
	case sig := <-shutdown:
		logger.Info("shutdown started", sig)

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
		logger.Info("shutdown complete", sig)
	}
	return nil
}
