package main

import (
	appointmenthandler "medsched/internal/appointments/handler"
	appointmentrepository "medsched/internal/appointments/repository"
	appointmentservice "medsched/internal/appointments/service"
	appointmentvalidator "medsched/internal/appointments/validator"
	availabilityservice "medsched/internal/availability/service"
	availabilityvalidator "medsched/internal/availability/validator"
	calendarsync "medsched/internal/calendarsync/service"
	exceptionrepository "medsched/internal/exceptions/repository"
	exceptionservice "medsched/internal/exceptions/service"
	exceptionvalidator "medsched/internal/exceptions/validator"
	lockservice "medsched/internal/locks/service"
	practitionerrepository "medsched/internal/practitioners/repository"
	practitionerservice "medsched/internal/practitioners/service"
	practitionervalidator "medsched/internal/practitioners/validator"
	schedulerepository "medsched/internal/schedules/repository"
	"medsched/pkg/app"
	"medsched/pkg/config"
	"medsched/pkg/timezone"
)

const ServiceName = "appointments"

// @title Appointments API
// @version 1.0
// @description Booking workflow validated against practitioner availability.
// @BasePath /
func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	if cfg.LockBackend == config.LockBackendRedis {
		cfg.SetRedis()
	}

	cfg.Log.Info("Starting Appointments service")
	publisher, closePublisher, err := calendarsync.NewPublisherFromConfig(cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize calendar sync", "error", err)
	}

	appointmentService := initServices(cfg, publisher)
	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(closePublisher)
	serverApp.SetApp(appointmenthandler.NewAppointmentHandler(appointmentService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher calendarsync.Publisher) appointmentservice.AppointmentService {
	zones := timezone.NewLoader(cfg.DefaultTimeZone)
	locker := lockservice.NewLockerFromConfig(cfg)

	practitionerService := practitionerservice.NewPractitionerService(
		practitionerrepository.NewMongoPractitionerRepository(cfg),
		practitionervalidator.NewPractitionerValidator(cfg.Log),
		zones,
		cfg,
	)
	// Exceptions are only read here, so their publisher is never reached.
	exceptionService := exceptionservice.NewExceptionService(
		exceptionrepository.NewMongoExceptionRepository(cfg),
		exceptionvalidator.NewExceptionValidator(cfg.Log),
		locker,
		practitionerService,
		calendarsync.NewNoopPublisher(cfg.Log),
		cfg,
	)
	availabilityService := availabilityservice.NewAvailabilityService(
		schedulerepository.NewMongoScheduleRepository(cfg),
		exceptionService,
		practitionerService,
		availabilityvalidator.NewSlotValidator(cfg.Log),
		zones,
		cfg,
	)

	appointmentService := appointmentservice.NewAppointmentService(
		appointmentrepository.NewMongoAppointmentRepository(cfg),
		appointmentvalidator.NewAppointmentValidator(cfg.Log),
		locker,
		availabilityService,
		practitionerService,
		publisher,
		cfg,
	)

	cfg.Log.Info("Appointments service initialized", "database", cfg.MongoDatabaseName)
	return appointmentService
}
