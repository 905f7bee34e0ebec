package main

import (
	availabilityhandler "medsched/internal/availability/handler"
	availabilityservice "medsched/internal/availability/service"
	availabilityvalidator "medsched/internal/availability/validator"
	calendarsync "medsched/internal/calendarsync/service"
	exceptionhandler "medsched/internal/exceptions/handler"
	exceptionrepository "medsched/internal/exceptions/repository"
	exceptionservice "medsched/internal/exceptions/service"
	exceptionvalidator "medsched/internal/exceptions/validator"
	lockservice "medsched/internal/locks/service"
	practitionerhandler "medsched/internal/practitioners/handler"
	practitionerrepository "medsched/internal/practitioners/repository"
	practitionerservice "medsched/internal/practitioners/service"
	practitionervalidator "medsched/internal/practitioners/validator"
	schedulehandler "medsched/internal/schedules/handler"
	schedulerepository "medsched/internal/schedules/repository"
	scheduleservice "medsched/internal/schedules/service"
	schedulevalidator "medsched/internal/schedules/validator"
	"medsched/pkg/app"
	"medsched/pkg/config"
	"medsched/pkg/timezone"
)

const ServiceName = "scheduling"

// @title Scheduling API
// @version 1.0
// @description Practitioners, weekly schedules, exceptions and availability.
// @BasePath /
func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	if cfg.LockBackend == config.LockBackendRedis {
		cfg.SetRedis()
	}

	cfg.Log.Info("Starting Scheduling service")
	publisher, closePublisher, err := calendarsync.NewPublisherFromConfig(cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize calendar sync", "error", err)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(closePublisher)
	serverApp.SetApp(initHandlers(cfg, publisher)...)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, publisher calendarsync.Publisher) []app.RouteRegistrar {
	zones := timezone.NewLoader(cfg.DefaultTimeZone)

	practitionerService := practitionerservice.NewPractitionerService(
		practitionerrepository.NewMongoPractitionerRepository(cfg),
		practitionervalidator.NewPractitionerValidator(cfg.Log),
		zones,
		cfg,
	)

	scheduleRepo := schedulerepository.NewMongoScheduleRepository(cfg)
	scheduleService := scheduleservice.NewScheduleService(
		scheduleRepo,
		schedulevalidator.NewScheduleValidator(cfg.Log),
		practitionerService,
		cfg,
	)

	exceptionService := exceptionservice.NewExceptionService(
		exceptionrepository.NewMongoExceptionRepository(cfg),
		exceptionvalidator.NewExceptionValidator(cfg.Log),
		lockservice.NewLockerFromConfig(cfg),
		practitionerService,
		publisher,
		cfg,
	)

	availabilityService := availabilityservice.NewAvailabilityService(
		scheduleRepo,
		exceptionService,
		practitionerService,
		availabilityvalidator.NewSlotValidator(cfg.Log),
		zones,
		cfg,
	)

	cfg.Log.Info("Scheduling services initialized", "database", cfg.MongoDatabaseName)
	return []app.RouteRegistrar{
		practitionerhandler.NewPractitionerHandler(practitionerService, cfg.Log),
		schedulehandler.NewScheduleHandler(scheduleService, cfg.Log),
		exceptionhandler.NewExceptionHandler(exceptionService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
	}
}
