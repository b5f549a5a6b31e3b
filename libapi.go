package hubflow

import (
	checkpointpkg "github.com/drblury/hubflow/checkpoint"
	runtimepkg "github.com/drblury/hubflow/internal/runtime"
	configpkg "github.com/drblury/hubflow/internal/runtime/config"
	errspkg "github.com/drblury/hubflow/internal/runtime/errors"
	eventpkg "github.com/drblury/hubflow/internal/runtime/event"
	idspkg "github.com/drblury/hubflow/internal/runtime/ids"
	jsoncodec "github.com/drblury/hubflow/internal/runtime/jsoncodec"
	linkspkg "github.com/drblury/hubflow/internal/runtime/links"
	loggingpkg "github.com/drblury/hubflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/hubflow/internal/runtime/metadata"
	linkpkg "github.com/drblury/hubflow/link"
)

type (
	Config = configpkg.Config

	Producer             = runtimepkg.Producer
	ProducerDependencies = runtimepkg.ProducerDependencies
	Lifecycle            = runtimepkg.Lifecycle
	SendOption           = runtimepkg.SendOption
	RetryPolicy          = runtimepkg.RetryPolicy

	Event = eventpkg.Event
	Batch = eventpkg.Batch

	PartitionContext            = runtimepkg.PartitionContext
	LastEnqueuedEventProperties = runtimepkg.LastEnqueuedEventProperties

	Metadata = metadatapkg.Metadata

	LogFields                 = loggingpkg.LogFields
	ServiceLogger             = loggingpkg.ServiceLogger
	EntryLogger               = loggingpkg.EntryLogger
	EntryLoggerAdapter[T any] = loggingpkg.EntryLoggerAdapter[T]

	// Send lifecycle hooks
	SendContext = runtimepkg.SendContext
	SendHooks   = runtimepkg.SendHooks

	// Producer metrics
	ProducerMetrics         = runtimepkg.ProducerMetrics
	ProducerTargetMetrics   = runtimepkg.ProducerTargetMetrics
	ProducerMetricsSnapshot = runtimepkg.ProducerMetricsSnapshot

	// Producer statistics
	ProducerStats = runtimepkg.ProducerStats
	ProducerInfo  = runtimepkg.ProducerInfo

	// Error types
	ConfigValidationError = errspkg.ConfigValidationError
	AuthenticationError   = errspkg.AuthenticationError
	ConnectError          = errspkg.ConnectError
	ConnectionLostError   = errspkg.ConnectionLostError
	EventDataError        = errspkg.EventDataError
	EventDataSendError    = errspkg.EventDataSendError
	OperationTimeoutError = errspkg.OperationTimeoutError
	ErrorCategory         = errspkg.ErrorCategory

	// Checkpoint persistence
	Checkpoint      = checkpointpkg.Checkpoint
	CheckpointStore = checkpointpkg.Store

	// Modular link types (public package structure)
	Link                 = linkpkg.Link
	LinkSettings         = linkpkg.Settings
	LinkBuilder          = linkpkg.Builder
	LinkRegistry         = linkpkg.Registry
	LinkConfig           = linkpkg.Config
	Capabilities         = linkpkg.Capabilities
	CapabilitiesProvider = linkpkg.CapabilitiesProvider
	Result               = linkpkg.Result
	OutcomeFunc          = linkpkg.OutcomeFunc

	LinkFactory = linkspkg.Factory
)

var (
	NewProducer    = runtimepkg.NewProducer
	TryNewProducer = runtimepkg.TryNewProducer
	ValidateConfig = configpkg.ValidateConfig

	// Event and batch construction
	NewEvent          = eventpkg.NewEvent
	NewEventFromJSON  = eventpkg.NewEventFromJSON
	NewEventFromProto = eventpkg.NewEventFromProto
	NewReceivedEvent  = eventpkg.NewReceivedEvent
	NewBatch          = eventpkg.NewBatch
	NewKeyedBatch     = eventpkg.NewKeyedBatch

	// Send options
	WithPartitionKey = runtimepkg.WithPartitionKey
	WithTimeout      = runtimepkg.WithTimeout

	// Send lifecycle hooks
	LoggingHooks  = runtimepkg.LoggingHooks
	MetricsHooks  = runtimepkg.MetricsHooks
	AlertingHooks = runtimepkg.AlertingHooks

	// Producer metrics
	NewProducerMetrics = runtimepkg.NewProducerMetrics

	// Partition context and checkpoint stores
	NewPartitionContext = runtimepkg.NewPartitionContext
	NewMemoryStore      = checkpointpkg.NewMemoryStore
	NewSQLiteStore      = checkpointpkg.NewSQLiteStore

	// Error classification
	IsRetryable   = errspkg.IsRetryable
	ClassifyError = errspkg.Classify

	// Modular link registry (public package structure)
	// Use RegisterLink and BuildLink to work with the link packages.
	// Import individual links via: _ "github.com/drblury/hubflow/link/kafka"
	DefaultLinkRegistry          = linkpkg.DefaultRegistry
	RegisterLink                 = linkpkg.Register
	RegisterLinkWithCapabilities = linkpkg.RegisterWithCapabilities
	BuildLink                    = linkpkg.Build
	DefaultLinkFactory           = linkspkg.DefaultFactory
	GetCapabilities              = linkspkg.Capabilities

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired
	ErrEventPayloadRequired = errspkg.ErrEventPayloadRequired
	ErrProducerClosed       = errspkg.ErrProducerClosed
	ErrSendFailed           = errspkg.ErrSendFailed
	ErrReconnectDisabled    = errspkg.ErrReconnectDisabled
	ErrStoreClosed          = checkpointpkg.ErrStoreClosed

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewWatermillAdapter       = loggingpkg.NewWatermillAdapter

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Annotation keys stamped on events crossing a link.
const (
	AnnotationPartitionKey   = linkpkg.AnnotationPartitionKey
	AnnotationOffset         = linkpkg.AnnotationOffset
	AnnotationSequenceNumber = linkpkg.AnnotationSequenceNumber
	AnnotationEnqueuedTime   = linkpkg.AnnotationEnqueuedTime
)

// Batch dispositions reported by links.
const (
	ResultOK      = linkpkg.ResultOK
	ResultTimeout = linkpkg.ResultTimeout
	ResultError   = linkpkg.ResultError
)

// DefaultConsumerGroup is the checkpoint consumer group used when none is
// named.
const DefaultConsumerGroup = checkpointpkg.DefaultConsumerGroup

// PropertyEventSchema identifies the proto message type an event payload was
// marshalled from.
const PropertyEventSchema = eventpkg.PropertyEventSchema

// Error category constants for the stats error breakdown.
const (
	ErrorCategoryNone       = errspkg.ErrorCategoryNone
	ErrorCategoryValidation = errspkg.ErrorCategoryValidation
	ErrorCategoryTransport  = errspkg.ErrorCategoryTransport
	ErrorCategoryDownstream = errspkg.ErrorCategoryDownstream
	ErrorCategoryOther      = errspkg.ErrorCategoryOther
)

func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	return loggingpkg.NewEntryServiceLogger(entry)
}
