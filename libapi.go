package eventbridge

import (
	circulatorpkg "github.com/nordlight/eventbridge/internal/circulator"
	configpkg "github.com/nordlight/eventbridge/internal/config"
	idspkg "github.com/nordlight/eventbridge/internal/ids"
	jsoncodec "github.com/nordlight/eventbridge/internal/jsoncodec"
	loggingpkg "github.com/nordlight/eventbridge/internal/logging"
	metadatapkg "github.com/nordlight/eventbridge/internal/metadata"
	ingestpkg "github.com/nordlight/eventbridge/ingest"
	sinkspkg "github.com/nordlight/eventbridge/sinks"
	enginespkg "github.com/nordlight/eventbridge/transformengines"
	transportpkg "github.com/nordlight/eventbridge/transport"
)

type (
	// Core types.
	Bridge       = circulatorpkg.Bridge
	Dependencies = circulatorpkg.Dependencies
	BridgeConfig = circulatorpkg.BridgeConfig

	RunnerName          = circulatorpkg.RunnerName
	ConnectRecord       = circulatorpkg.ConnectRecord
	SubscribeRunnerKeys = circulatorpkg.SubscribeRunnerKeys
	TargetRunnerConfig  = circulatorpkg.TargetRunnerConfig
	Stage               = circulatorpkg.Stage
	RunnerMetrics       = circulatorpkg.RunnerMetrics
	EstimateMetrics     = circulatorpkg.EstimateMetrics
	DropReason          = circulatorpkg.DropReason

	TransformEngine = circulatorpkg.TransformEngine
	SinkTask        = circulatorpkg.SinkTask
	OffsetManager   = circulatorpkg.OffsetManager
	ErrorHandler    = circulatorpkg.ErrorHandler

	Lifecycle = circulatorpkg.Lifecycle
	Context   = circulatorpkg.Context
	Estimator = circulatorpkg.Estimator
	Metrics   = circulatorpkg.Metrics

	BatchContext = circulatorpkg.BatchContext
	BatchHooks   = circulatorpkg.BatchHooks

	DropErrorHandler  = circulatorpkg.DropErrorHandler
	DLQErrorHandler   = circulatorpkg.DLQErrorHandler
	RetryErrorHandler = circulatorpkg.RetryErrorHandler

	NoopOffsetManager   = circulatorpkg.NoopOffsetManager
	SQLiteOffsetManager = circulatorpkg.SQLiteOffsetManager

	// Ambient types.
	Config        = configpkg.Config
	Metadata      = metadatapkg.Metadata
	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// Domain collaborators.
	Sink = sinkspkg.Sink
	Pump = ingestpkg.Pump

	Identity    = enginespkg.Identity
	Chain       = enginespkg.Chain
	EngineFunc  = enginespkg.Func
	SizedEngine = enginespkg.Sized

	TransportConfig   = transportpkg.Config
	TransportRegistry = transportpkg.Registry
)

const (
	StageTransform = circulatorpkg.StageTransform
	StagePush      = circulatorpkg.StagePush

	ReasonTransformError    = circulatorpkg.ReasonTransformError
	ReasonSinkError         = circulatorpkg.ReasonSinkError
	ReasonBackpressureDrop  = circulatorpkg.ReasonBackpressureDrop
	ReasonExecutorRejection = circulatorpkg.ReasonExecutorRejection
)

var (
	NewBridge           = circulatorpkg.NewBridge
	NewContext          = circulatorpkg.NewContext
	NewEstimator        = circulatorpkg.NewEstimator
	NewLifecycle        = circulatorpkg.NewLifecycle
	NewMetrics          = circulatorpkg.NewMetrics
	NewTransformWorker  = circulatorpkg.NewTransformWorker
	NewPushWorker       = circulatorpkg.NewPushWorker
	DefaultBridgeConfig = circulatorpkg.DefaultBridgeConfig

	NewDLQErrorHandler     = circulatorpkg.NewDLQErrorHandler
	NewNoopOffsetManager   = circulatorpkg.NewNoopOffsetManager
	NewSQLiteOffsetManager = circulatorpkg.NewSQLiteOffsetManager

	ErrRunnerNotFound        = circulatorpkg.ErrRunnerNotFound
	ErrTargetQueueFull       = circulatorpkg.ErrTargetQueueFull
	ErrEventQueueFull        = circulatorpkg.ErrEventQueueFull
	ErrExecutorSaturated     = circulatorpkg.ErrExecutorSaturated
	ErrWorkerShutdownTimeout = circulatorpkg.ErrWorkerShutdownTimeout

	ValidateConfig = configpkg.ValidateConfig

	BuildSink = sinkspkg.Build
	BuildPump = ingestpkg.Build

	NewMetadata   = metadatapkg.New
	CreateULID    = idspkg.CreateULID
	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger

	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	GetCapabilities          = transportpkg.GetCapabilities
)
