// Package gateway is the composition root: it builds every subsystem in
// dependency order, registers each as a feature in the lifecycle manager,
// and exposes the running instance's observer, control, and status
// surfaces to the external collaborators named in spec §6. It adapts the
// teacher's pkg/controlplane/runtime + cmd/dittofs/commands/start.go
// wiring order to this domain's network/decoder/entity graph.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/coachlink/gateway/internal/canbus"
	"github.com/coachlink/gateway/internal/dispatch"
	"github.com/coachlink/gateway/internal/entity"
	"github.com/coachlink/gateway/internal/feature"
	"github.com/coachlink/gateway/internal/firefly"
	"github.com/coachlink/gateway/internal/frame"
	"github.com/coachlink/gateway/internal/gwerrors"
	"github.com/coachlink/gateway/internal/j1939"
	"github.com/coachlink/gateway/internal/j1939/bridge"
	"github.com/coachlink/gateway/internal/logger"
	"github.com/coachlink/gateway/internal/rvc"
	"github.com/coachlink/gateway/internal/safety"
	"github.com/coachlink/gateway/internal/spartank2"
	"github.com/coachlink/gateway/pkg/config"
	"github.com/coachlink/gateway/pkg/control/token"
	"github.com/coachlink/gateway/pkg/gatewayhttp"
	metricspkg "github.com/coachlink/gateway/pkg/metrics"
	"github.com/coachlink/gateway/pkg/store/eventlog"
	"github.com/coachlink/gateway/pkg/store/journal"
)

// netPipeline bundles one network's reader/dispatch-loop pair, per
// spec §5's single-producer/single-consumer task pairing per node.
type netPipeline struct {
	network   config.NetworkConfig
	queue     *dispatch.InboundQueue
	reader    *dispatch.ReaderTask
	loop      *dispatch.DispatchLoop
	transport frame.BusTransport
}

// Service is the running gateway instance: every wired subsystem plus the
// feature manager that owns their lifecycle, per spec §9's composition-root
// re-architecture of the original's module-level singletons.
type Service struct {
	cfg *config.Config

	networks *canbus.Registry
	monitor  *canbus.Monitor
	entities *entity.Registry
	updater  *entity.Updater
	vehicle  *safety.VehicleState
	features *feature.Manager

	coachMap     *rvc.CoachMapping
	coachMapPath string
	rvcEncoder   *rvc.Encoder
	dispatcher  *dispatch.Dispatcher
	j1939Bridge *bridge.Bridge
	router      *dispatch.Router

	interlocks *safety.Registry

	journal  *journal.Journal
	eventlog *eventlog.Store
	verifier *token.Verifier

	httpServer    *http.Server
	metricsServer *http.Server

	transportFactory TransportFactory
	pipelines        []*netPipeline

	ctx    context.Context
	cancel context.CancelFunc
	// tasks supervises every long-lived reader/dispatch-loop/monitor/router
	// goroutine. Deliberately not errgroup.WithContext: a single node's
	// reader or dispatch loop returning an error must not cancel its
	// siblings, per spec §4.1's "manager never halts unless explicitly shut
	// down" failure model, so each Go func swallows its own error after
	// logging it and always returns nil.
	tasks *errgroup.Group

	mu      sync.Mutex
	started bool
}

// New builds every subsystem named in the configuration and registers it
// with the feature manager, but starts nothing yet. factory builds each
// network's bus transport; passing nil uses DefaultTransportFactory
// (virtual-only, suitable for bench/demo use).
func New(cfg *config.Config, factory TransportFactory) (*Service, error) {
	if factory == nil {
		factory = DefaultTransportFactory
	}

	s := &Service{
		cfg:              cfg,
		networks:         canbus.NewRegistry(),
		entities:         entity.NewRegistry(),
		vehicle:          safety.NewVehicleState(),
		features:         feature.NewManager(),
		interlocks:       safety.NewRegistry(),
		transportFactory: factory,
	}

	if s.cfg.Metrics.Enabled {
		metricspkg.InitRegistry()
	}

	if err := s.wireDecoders(); err != nil {
		return nil, err
	}
	if err := s.wirePersistence(); err != nil {
		return nil, err
	}
	if err := s.wireControl(); err != nil {
		return nil, err
	}
	s.wireNetworks()
	s.wireHTTP()
	if err := s.registerFeatures(); err != nil {
		return nil, err
	}

	return s, nil
}

// wireDecoders loads the RV-C and J1939(+OEM) tables, builds the
// per-family decoders, the Firefly reassembler, the Spartan K2 chassis
// decoder, the J1939<->RV-C bridge, and the single shared Dispatcher every
// network's reader/dispatch loop calls into (spec §4.2-§4.6).
//
// Deployments with more than one RV-C network are expected to share one
// spec table and coach mapping (the common case: one house network, one
// chassis network); the first rvc-protocol network's SpecTablePath/
// CoachMappingPath in cfg.CAN wins. A deployment needing genuinely
// independent RV-C tables per network would need per-network Decoders,
// which spec §4.3's "loads three artifacts at startup" (singular) doesn't
// call for.
func (s *Service) wireDecoders() error {
	var decoders dispatch.Decoders

	specPath, coachPath := s.firstRVCPaths()
	if specPath != "" {
		table, err := rvc.LoadPGNTable(specPath)
		if err != nil {
			return gwerrors.Config("rvc-decoder", err)
		}
		decoders.RVC = rvc.NewDecoder(table)

		if coachPath != "" {
			cm, err := rvc.LoadCoachMapping(coachPath)
			if err != nil {
				return gwerrors.Config("rvc-decoder", err)
			}
			s.coachMap = cm
			s.coachMapPath = coachPath
			s.rvcEncoder = rvc.NewEncoder(table, cm, 0xF9)
		}
	}

	if s.cfg.Firefly.Enabled {
		decoders.Firefly = firefly.NewDecoderWithTimeout(s.cfg.Firefly.MultiplexTimeout)
	}

	if s.hasProtocol("j1939") {
		flags := j1939.FeatureFlags{
			EnableCumminsExtensions: s.cfg.J1939.EnableCumminsExtensions,
			EnableAllisonExtensions: s.cfg.J1939.EnableAllisonExtensions,
			EnableChassisExtensions: s.cfg.J1939.EnableChassisExtensions,
			EnableAddressValidation: s.cfg.J1939.EnableAddressValidation,
			PriorityCriticalPGNs:    s.cfg.J1939.PriorityCriticalPGNs,
			PriorityHighPGNs:        s.cfg.J1939.PriorityHighPGNs,
		}
		table := j1939.BuildTable(flags)
		decoders.J1939 = j1939.NewDecoder(table, flags)

		if s.cfg.SpartanK2.Enabled {
			decoders.SpartanK2 = spartank2.NewDecoder(s.vehicle)
		}

		if s.cfg.J1939.BridgeRVC {
			s.j1939Bridge = bridge.New(bridge.Config{
				BridgeEngineData:       s.cfg.J1939.BridgeEngineData,
				BridgeTransmissionData: s.cfg.J1939.BridgeTransmissionData,
			})
		}
	}

	if s.coachMap != nil {
		s.entities = entity.BuildFromCoachMapping(s.coachMap)
	}
	s.updater = entity.NewUpdater(s.entities, s.coachMap, s.vehicle)
	s.dispatcher = dispatch.New(decoders, s.j1939Bridge, s.updater)
	return nil
}

func (s *Service) firstRVCPaths() (specPath, coachPath string) {
	for _, n := range s.cfg.CAN {
		if n.Protocol == "rvc" && n.SpecTablePath != "" {
			return n.SpecTablePath, n.CoachMappingPath
		}
	}
	return "", ""
}

func (s *Service) hasProtocol(proto string) bool {
	for _, n := range s.cfg.CAN {
		if n.Protocol == proto {
			return true
		}
	}
	return false
}

// wirePersistence opens the optional diagnostic journal and long-term
// event archive, subscribing the journal to the entity updater's observer
// feed (spec_full §5's supplemented persistence features).
func (s *Service) wirePersistence() error {
	if s.cfg.Persistence.Journal.Enabled {
		j, err := journal.Open(s.cfg.Persistence.Journal.Path, s.cfg.Persistence.Journal.MaxPerNode)
		if err != nil {
			return gwerrors.Config("journal", err)
		}
		s.journal = j
		s.updater.Subscribe(func(snap entity.Snapshot) {
			if err := s.journal.RecordEntitySnapshot(snap); err != nil {
				logger.Debug("journal record failed", logger.KeyEntityID, snap.EntityID, logger.KeyError, err)
			}
		})
	}

	if s.cfg.Persistence.Eventlog.Enabled {
		store, err := eventlog.Open(s.cfg.Persistence.Eventlog.DSN)
		if err != nil {
			return gwerrors.Config("eventlog", err)
		}
		s.eventlog = store
	}
	return nil
}

// wireControl constructs the JWT verifier gating Control() calls, when
// configured.
func (s *Service) wireControl() error {
	if !s.cfg.Control.RequireToken {
		return nil
	}
	v, err := token.NewVerifier(s.cfg.Control.SigningKey)
	if err != nil {
		return gwerrors.Config("control", err)
	}
	s.verifier = v
	return nil
}

// wireNetworks registers every configured network node and builds its
// reader/dispatch-loop pipeline, per spec §4.1/§5. Registration and
// pipeline construction never fail the whole process for one bad
// network; bus attach happens later, in Start.
func (s *Service) wireNetworks() {
	for _, n := range s.cfg.CAN {
		priority := parsePriority(n.Priority)
		node, err := s.networks.Register(n.NetworkID, n.Interface, n.Protocol, priority, n.Isolation, n.Filters)
		if err != nil {
			logger.Error("network registration failed", logger.KeyNetworkID, n.NetworkID, logger.KeyError, err)
			continue
		}

		queue := dispatch.NewInboundQueue(s.cfg.MultiNetwork.InboundQueueCapacity, node)
		s.pipelines = append(s.pipelines, &netPipeline{
			network: n,
			queue:   queue,
			reader:  dispatch.NewReaderTask(node, nil, n.Protocol, queue, s.dispatcher),
			loop:    dispatch.NewDispatchLoop(node, n.Protocol, queue, s.dispatcher, nil),
		})
	}

	interval := s.cfg.MultiNetwork.HealthCheckInterval
	s.monitor = canbus.NewMonitor(s.networks, interval, s.cfg.MultiNetwork.FaultIsolation, s.reattach)

	if s.cfg.MultiNetwork.CrossNetworkRouting {
		s.router = dispatch.NewRouter(s.cfg.MultiNetwork.RouterQueueCapacity, s.routeMessage, s.dispatcher.Counters())
		for _, p := range s.pipelines {
			p.loop.Router = s.router
		}
	}
}

func (s *Service) reattach(ctx context.Context, networkID string) (frame.BusTransport, error) {
	for _, n := range s.cfg.CAN {
		if n.NetworkID == networkID {
			return recoveringReattach(s.transportFactory, n)(ctx, networkID)
		}
	}
	return nil, fmt.Errorf("reattach: network %q not configured", networkID)
}

// routeMessage is the cross-network Router's delivery function. This
// composition has no peer gateway to forward to (that would require a
// second gateway instance, out of scope per spec §1), so it only records
// throughput; a deployment bridging to a remote peer would override this
// via its own TransportFactory-style injection point.
func (s *Service) routeMessage(_ context.Context, msg dispatch.RoutedMessage) error {
	logger.Debug("cross-network message routed",
		logger.KeySourceNetwork, msg.SourceNetworkID, logger.KeyPGN, msg.Message.PGN)
	return nil
}

// wireHTTP builds the status/health/control HTTP surface, when enabled.
func (s *Service) wireHTTP() {
	if !s.cfg.HTTP.Enabled {
		return
	}
	var controlFn gatewayhttp.ControlFunc
	if s.rvcEncoder != nil {
		controlFn = s.Control
	}
	handler := gatewayhttp.NewRouter(s, s.verifier, controlFn)
	s.httpServer = &http.Server{Addr: s.cfg.HTTP.Addr, Handler: handler}
}

// registerFeatures builds the feature dependency graph: CAN networking and
// the entity registry are critical (a startup failure aborts the process);
// Spartan K2 interlocks are safety_related; the J1939 bridge, persistence,
// and the HTTP surface are operational; metrics is maintenance (spec §4.8).
func (s *Service) registerFeatures() error {
	networking := &feature.Feature{
		Name:                  "can-networking",
		Enabled:               len(s.pipelines) > 0,
		Core:                  true,
		SafetyClassification:  feature.ClassCritical,
		LogStateTransitions:   true,
		Start:                 s.startNetworking,
		Stop:                  s.stopNetworking,
	}
	if err := s.features.Register(networking); err != nil {
		return err
	}

	entities := &feature.Feature{
		Name:                 "entity-registry",
		Enabled:              true,
		Core:                 true,
		Dependencies:         []string{"can-networking"},
		SafetyClassification: feature.ClassCritical,
		Start: func() error {
			if s.coachMapPath != "" {
				s.tasks.Go(func() error {
					s.watchCoachMapping(s.ctx)
					return nil
				})
			}
			return nil
		},
		Stop: func() error { return nil },
	}
	if err := s.features.Register(entities); err != nil {
		return err
	}

	bridgeFeature := &feature.Feature{
		Name:                 "j1939-bridge",
		Enabled:              s.j1939Bridge != nil,
		Dependencies:         []string{"can-networking"},
		SafetyClassification: feature.ClassOperational,
		Start: func() error {
			if s.j1939Bridge != nil {
				s.j1939Bridge.Start()
			}
			return nil
		},
		Stop: func() error {
			if s.j1939Bridge != nil {
				s.j1939Bridge.Stop()
			}
			return nil
		},
	}
	if err := s.features.Register(bridgeFeature); err != nil {
		return err
	}

	interlocks := &feature.Feature{
		Name:                 "spartan-k2-interlocks",
		Enabled:              s.cfg.SpartanK2.Enabled && s.cfg.SpartanK2.SafetyInterlocks,
		Dependencies:         []string{"can-networking"},
		SafetyClassification: feature.ClassSafetyRelated,
		Start:                func() error { return nil },
		Stop:                 func() error { return nil },
	}
	if err := s.features.Register(interlocks); err != nil {
		return err
	}

	journalFeature := &feature.Feature{
		Name:                 "journal",
		Enabled:              s.journal != nil,
		Dependencies:         []string{"entity-registry"},
		SafetyClassification: feature.ClassOperational,
		Start:                func() error { return nil },
		Stop: func() error {
			if s.journal != nil {
				return s.journal.Close()
			}
			return nil
		},
	}
	if err := s.features.Register(journalFeature); err != nil {
		return err
	}

	eventlogFeature := &feature.Feature{
		Name:                 "eventlog",
		Enabled:              s.eventlog != nil,
		Dependencies:         []string{"entity-registry"},
		SafetyClassification: feature.ClassOperational,
		Start:                func() error { return nil },
		Stop: func() error {
			if s.eventlog != nil {
				return s.eventlog.Close()
			}
			return nil
		},
	}
	if err := s.features.Register(eventlogFeature); err != nil {
		return err
	}

	httpFeature := &feature.Feature{
		Name:                 "http-status",
		Enabled:              s.httpServer != nil,
		Dependencies:         []string{"entity-registry", "can-networking"},
		SafetyClassification: feature.ClassOperational,
		Start:                s.startHTTP,
		Stop:                 s.stopHTTP,
	}
	if err := s.features.Register(httpFeature); err != nil {
		return err
	}

	metricsFeature := &feature.Feature{
		Name:                 "metrics",
		Enabled:              s.cfg.Metrics.Enabled,
		SafetyClassification: feature.ClassMaintenance,
		Start:                s.startMetrics,
		Stop:                 s.stopMetrics,
	}
	return s.features.Register(metricsFeature)
}

// startNetworking attaches every configured network's bus transport and
// launches its reader/dispatch-loop pair, plus the shared health monitor
// and cross-network router, per spec §5.
func (s *Service) startNetworking() error {
	for _, p := range s.pipelines {
		transport, err := s.transportFactory(s.ctx, p.network)
		if err != nil {
			return gwerrors.BusFault(p.network.NetworkID, err)
		}
		p.transport = transport
		p.reader.Transport = transport

		if err := s.networks.Attach(p.network.NetworkID, transport); err != nil {
			logger.Warn("network attach failed, node marked faulted", logger.KeyNetworkID, p.network.NetworkID, logger.KeyError, err)
		}

		s.tasks.Go(func() error {
			if err := p.reader.Run(s.ctx); err != nil && s.ctx.Err() == nil {
				logger.Error("reader task exited", logger.KeyNetworkID, p.network.NetworkID, logger.KeyError, err)
			}
			return nil
		})
		s.tasks.Go(func() error {
			if err := p.loop.Run(s.ctx); err != nil && s.ctx.Err() == nil {
				logger.Error("dispatch loop exited", logger.KeyNetworkID, p.network.NetworkID, logger.KeyError, err)
			}
			return nil
		})
	}

	s.tasks.Go(func() error {
		if err := s.monitor.Run(s.ctx); err != nil && s.ctx.Err() == nil {
			logger.Error("health monitor exited", logger.KeyError, err)
		}
		return nil
	})

	if s.router != nil {
		s.tasks.Go(func() error {
			s.router.Run(s.ctx)
			return nil
		})
	}

	return nil
}

// stopNetworking shuts down every attached transport. The reader/loop/
// monitor goroutines exit on their own once Service.Stop cancels the
// shared context; Stop joins s.tasks after every feature stops.
func (s *Service) stopNetworking() error {
	s.networks.Shutdown()
	return nil
}

func (s *Service) startHTTP() error {
	if s.httpServer == nil {
		return nil
	}
	s.tasks.Go(func() error {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("gateway http server exited", logger.KeyError, err)
		}
		return nil
	})
	return nil
}

func (s *Service) stopHTTP() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Service) startMetrics() error {
	if !s.cfg.Metrics.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metricspkg.GetRegistry(), promhttp.HandlerOpts{}))
	s.metricsServer = &http.Server{Addr: fmt.Sprintf(":%d", s.cfg.Metrics.Port), Handler: mux}

	s.tasks.Go(func() error {
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics http server exited", logger.KeyError, err)
		}
		return nil
	})
	return nil
}

func (s *Service) stopMetrics() error {
	if s.metricsServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.metricsServer.Shutdown(ctx)
}

func parsePriority(p string) canbus.Priority {
	switch strings.ToLower(p) {
	case "critical":
		return canbus.PriorityCritical
	case "high":
		return canbus.PriorityHigh
	case "low":
		return canbus.PriorityLow
	case "background":
		return canbus.PriorityBackground
	default:
		return canbus.PriorityNormal
	}
}

// Start launches every registered feature in dependency order, per
// spec §4.8. A critical feature's startup failure aborts the whole
// process (the feature manager returns a non-nil error in that case);
// non-critical failures degrade per their safety classification.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.tasks = &errgroup.Group{}
	s.started = true
	s.mu.Unlock()

	if err := s.features.Start(); err != nil {
		s.cancel()
		return err
	}
	return nil
}

// Stop cancels every running task, stops every feature in reverse
// dependency order bounded by cfg.ShutdownTimeout, and waits for every
// launched goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.features.StopWithTimeout(s.cfg.ShutdownTimeout)
	s.cancel()
	_ = s.tasks.Wait()
}

// Networks implements gatewayhttp.StatusSource.
func (s *Service) Networks() []*canbus.NetworkNode { return s.networks.All() }

// Features implements gatewayhttp.StatusSource.
func (s *Service) Features() *feature.Manager { return s.features }

// Entities implements gatewayhttp.StatusSource.
func (s *Service) Entities() *entity.Registry { return s.entities }

// DispatchCounters implements gatewayhttp.StatusSource.
func (s *Service) DispatchCounters() *dispatch.Counters { return s.dispatcher.Counters() }

// VehicleState exposes the shared vehicle-motion/chassis-safety snapshot,
// for external collaborators (e.g. a dashboard or notification engine)
// that need it directly rather than through an entity.
func (s *Service) VehicleState() *safety.VehicleState { return s.vehicle }

// Control implements gatewayhttp.ControlFunc: it resolves entityID to its
// owning network via the entity's logical interface, evaluates any
// required safety interlocks, and on success encodes and sends the
// resulting frames. Acknowledged reflects frame queueing, not physical
// actuation, per spec §6.
func (s *Service) Control(entityID, command string, params map[string]any) (gatewayhttp.ControlAck, error) {
	commandID := uuid.NewString()
	logger.Debug("control command received",
		logger.KeyCommandID, commandID, logger.KeyEntityID, entityID, logger.KeyOperation, command)

	if s.rvcEncoder == nil {
		return gatewayhttp.ControlAck{}, gwerrors.Decode("control", "no RV-C encoder configured")
	}

	e, ok := s.entities.Get(entityID)
	if !ok {
		return gatewayhttp.ControlAck{}, gwerrors.Decode("control", "unknown entity %q", entityID)
	}

	if violations := s.checkInterlocks(entityID); len(violations) > 0 {
		logger.Warn("control command rejected by interlock",
			logger.KeyCommandID, commandID, logger.KeyEntityID, entityID, logger.KeyViolation, strings.Join(violations, ", "))
		return gatewayhttp.ControlAck{
			Accepted:  false,
			Reason:    fmt.Sprintf("interlock violation: %s", strings.Join(violations, ", ")),
			CommandID: commandID,
		}, nil
	}

	parameters := make(map[string]float64, len(params))
	for k, v := range params {
		if f, ok := toFloat(v); ok {
			parameters[k] = f
		}
	}

	frames, err := s.rvcEncoder.Encode(rvc.Command{
		EntityID:   entityID,
		Operation:  command,
		Parameters: parameters,
	})
	if err != nil {
		return gatewayhttp.ControlAck{}, err
	}

	networkID := e.Protocol
	transport, ok := s.networks.Transport(networkID)
	if !ok || transport == nil {
		return gatewayhttp.ControlAck{}, gwerrors.BusFault(networkID, fmt.Errorf("no transport attached to network %q", networkID))
	}

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, f := range frames {
		if err := transport.Send(ctx, f); err != nil {
			return gatewayhttp.ControlAck{}, gwerrors.TransientBus(networkID, err)
		}
	}

	return gatewayhttp.ControlAck{Accepted: true, CommandID: commandID}, nil
}

// checkInterlocks evaluates cfg.Firefly.RequiredInterlocks against the
// current vehicle snapshot when entityID's component is listed in
// cfg.Firefly.InterlockComponents (spec §6 scenario 6: "slides.extend"
// with the park brake not set is rejected).
func (s *Service) checkInterlocks(entityID string) []string {
	component := entityID
	if idx := strings.Index(entityID, "."); idx >= 0 {
		component = entityID[:idx]
	}

	interlocked := false
	for _, c := range s.cfg.Firefly.InterlockComponents {
		if c == component {
			interlocked = true
			break
		}
	}
	if !interlocked {
		return nil
	}

	return s.interlocks.Evaluate(s.vehicle.Snapshot(), s.cfg.Firefly.RequiredInterlocks)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
