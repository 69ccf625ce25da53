package supervisor

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	canservo "github.com/samsamfire/canservo"
	"github.com/samsamfire/canservo/pkg/actuator"
	"github.com/samsamfire/canservo/pkg/codec"
	"github.com/samsamfire/canservo/pkg/transport"
)

// Run starts the receive task for every registered transport plus the
// fixed-cadence control loop, and blocks until the context is cancelled,
// Stop is called, or an unrecoverable transport error occurs. On return it
// executes the shutdown sequence: zero-torque Control to every actuator,
// then Stop, then close transports.
func (s *Supervisor) Run(ctx context.Context, interval time.Duration) error {
	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = group

	s.transportsMu.Lock()
	transports := make(map[string]transport.Transport, len(s.transports))
	for name, entry := range s.transports {
		transports[name] = entry.transport
	}
	s.transportsMu.Unlock()

	for name, t := range transports {
		name, t := name, t
		group.Go(func() error {
			return s.receiveTask(groupCtx, name, t)
		})
	}

	group.Go(func() error {
		return s.tickLoop(groupCtx, interval, transports)
	})

	err := group.Wait()
	s.shutdownSequence(transports)

	if err != nil && !errors.Is(err, context.Canceled) {
		return canservo.NewError(canservo.KindTransport, "run", err)
	}
	return nil
}

// Stop signals Run to terminate. It does not block for Run to actually
// return; callers join on Run's own return.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// tickLoop runs tick at a fixed cadence, compensating for the time tick
// itself took so drift doesn't accumulate across iterations.
func (s *Supervisor) tickLoop(ctx context.Context, interval time.Duration, transports map[string]transport.Transport) error {
	var lastStart time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		if !lastStart.IsZero() {
			s.updateRate(start.Sub(lastStart))
		}
		lastStart = start

		s.tick(transports)

		elapsed := time.Since(start)
		sleep := interval - elapsed
		if sleep < time.Microsecond {
			sleep = time.Microsecond
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
	}
}

// tick runs one pass of the poll loop: drain at most one admin op per
// actuator, encode a Control frame for every actuator not pending admin,
// then flush everything interleaved across transports.
func (s *Supervisor) tick(transports map[string]transport.Transport) {
	perTransport := make(map[string][]canservo.Frame, len(transports))

	for name := range transports {
		for id, a := range s.actuatorsOn(name) {
			if req, ok := a.PopAdmin(); ok {
				if frame, send := s.applyAdmin(a, req); send {
					perTransport[name] = append(perTransport[name], frame)
				}
				continue
			}

			target := a.ClampedTarget(s.registry)
			frame, ok := s.registry.EncodeControl(id, a.Family(), target)
			if !ok {
				continue
			}
			perTransport[name] = append(perTransport[name], frame)
		}
	}

	s.flushInterleaved(transports, perTransport)
}

// flushInterleaved sends one queued frame per transport at a time, round
// robin, so a slow serial port does not delay every other transport's
// frames behind it.
func (s *Supervisor) flushInterleaved(transports map[string]transport.Transport, queues map[string][]canservo.Frame) {
	for {
		sentAny := false
		for name, queue := range queues {
			if len(queue) == 0 {
				continue
			}
			sentAny = true
			frame := queue[0]
			queues[name] = queue[1:]

			if err := transports[name].Send(frame); err != nil {
				s.recordTransportError(name)
				s.logger.WithError(err).WithField("transport", name).Warn("tick: send failed")
				continue
			}
			s.recordTransportSuccess(name)
		}
		if !sentAny {
			return
		}
	}
}

// applyAdmin builds the wire frame (if any) for a popped admin request and
// applies its local state effect. AdminConfigure has no wire frame of its
// own: setting limits already happened synchronously in Configure, and
// popping it here only consumes the tick's one-admin-op slot for this
// actuator.
func (s *Supervisor) applyAdmin(a *actuator.Actuator, req actuator.AdminRequest) (canservo.Frame, bool) {
	switch req.Op {
	case actuator.AdminEnable:
		if a.State() != actuator.StateFault {
			a.SetEnabled(true)
		}
		return adminFrame(a.ID(), canservo.CommEnable, uint16(s.hostID), codec.EnablePayload()), true

	case actuator.AdminDisable:
		if a.State() != actuator.StateFault {
			a.SetEnabled(false)
		}
		return adminFrame(a.ID(), canservo.CommStop, uint16(s.hostID), codec.StopPayload(false)), true

	case actuator.AdminDisableClearFault:
		if a.State() == actuator.StateFault {
			a.ClearFault()
		} else {
			a.SetEnabled(false)
		}
		return adminFrame(a.ID(), canservo.CommStop, uint16(s.hostID), codec.StopPayload(true)), true

	case actuator.AdminZero:
		return adminFrame(a.ID(), canservo.CommSetZero, uint16(s.hostID), codec.SetZeroPayload()), true

	case actuator.AdminSetID:
		return adminFrame(a.ID(), canservo.CommSetID, codec.SetIDData2(s.hostID, req.NewID), [8]byte{}), true

	case actuator.AdminConfigure:
		return canservo.Frame{}, false

	default:
		return canservo.Frame{}, false
	}
}

func adminFrame(motorID uint8, ct canservo.CommType, data2 uint16, data [8]byte) canservo.Frame {
	id := canservo.ExtendedID{MotorID: motorID, Data2: data2, CommType: ct}.Pack()
	return canservo.Frame{ID: id, Data: data, DLC: 8}
}

// receiveTask is the long-lived per-transport loop: call Recv in a loop,
// decode the communication type, and dispatch. It returns nil once ctx is
// cancelled, and returns an error (ending the errgroup) only on a transport
// EOF; ordinary I/O errors are logged and counted toward the Degraded
// threshold.
func (s *Supervisor) receiveTask(ctx context.Context, name string, t transport.Transport) error {
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			t.ClearBuffer()
		case <-stopWatch:
		}
	}()

	for {
		frame, err := t.Recv()
		if err != nil {
			if errors.Is(err, transport.ErrCleared) {
				if ctx.Err() != nil {
					return nil
				}
				continue
			}
			if errors.Is(err, canservo.ErrEOF) {
				return err
			}
			s.recordTransportError(name)
			s.logger.WithError(err).WithField("transport", name).Warn("recv error")
			continue
		}
		s.recordTransportSuccess(name)
		s.dispatchFrame(name, frame)
	}
}

// dispatchFrame decodes one received frame's communication type and routes
// it to the actuator record or a pending waiter.
func (s *Supervisor) dispatchFrame(transportName string, frame canservo.Frame) {
	eid := canservo.UnpackExtendedID(frame.ID)

	switch eid.CommType {
	case canservo.CommFeedback:
		// Signaled unconditionally: ChangeID waits on the *new* id, which
		// is not yet a registered actuator at the moment its confirming
		// Feedback frame arrives (rekeying happens after this wait
		// succeeds), so lookup below would otherwise never run for it.
		s.satisfyWaiter(transportName, eid.MotorID)

		_, a, err := s.lookup(eid.MotorID)
		if err != nil {
			return
		}
		fb, ok := s.registry.DecodeFeedback(a.Family(), frame.Data, eid.Data2)
		if !ok {
			return
		}
		a.ApplyFeedback(fb, time.Now())

	case canservo.CommFault:
		_, a, err := s.lookup(eid.MotorID)
		if err != nil {
			return
		}
		a.ApplyFault(codec.DecodeFault(frame.Data), time.Now())

	case canservo.CommObtainID:
		s.satisfyWaiter(transportName, eid.MotorID)

	case canservo.CommRead:
		pv := codec.DecodeParamResponse(frame.Data)
		s.satisfyReadWaiter(transportName, eid.MotorID, pv)
	}
}

// shutdownSequence sends zero-torque Control then Stop to every actuator,
// then closes every transport.
func (s *Supervisor) shutdownSequence(transports map[string]transport.Transport) {
	s.pendingMu.Lock()
	type entry struct {
		transportName string
		actuator      *actuator.Actuator
	}
	entries := make([]entry, 0, len(s.actuators))
	for key, a := range s.actuators {
		entries = append(entries, entry{transportName: key.transport, actuator: a})
	}
	s.pendingMu.Unlock()

	for _, e := range entries {
		t, ok := transports[e.transportName]
		if !ok {
			continue
		}
		zero := actuator.ZeroTorqueTarget(e.actuator.Target())
		if frame, ok := s.registry.EncodeControl(e.actuator.ID(), e.actuator.Family(), zero); ok {
			if err := t.Send(frame); err != nil {
				s.logger.WithError(err).WithField("transport", e.transportName).Warn("shutdown: zero-torque send failed")
			}
		}
	}

	for _, e := range entries {
		t, ok := transports[e.transportName]
		if !ok {
			continue
		}
		stop := adminFrame(e.actuator.ID(), canservo.CommStop, uint16(s.hostID), codec.StopPayload(false))
		if err := t.Send(stop); err != nil {
			s.logger.WithError(err).WithField("transport", e.transportName).Warn("shutdown: stop send failed")
		}
		e.actuator.SetEnabled(false)
	}

	for name, t := range transports {
		if err := t.Close(); err != nil {
			s.logger.WithError(err).WithField("transport", name).Warn("shutdown: close failed")
		}
	}
}
