package supervisor

import (
	"context"
	"time"

	canservo "github.com/samsamfire/canservo"
	"github.com/samsamfire/canservo/pkg/actuator"
	"github.com/samsamfire/canservo/pkg/codec"
)

// Configure enqueues a control-gain/limit change. Limits take effect
// immediately and constrain every Control target encoded from this point on;
// kp/kd travel to the motor as fields of the ordinary Control frame, not as a
// separate parameter write.
func (s *Supervisor) Configure(id uint8, limits actuator.Limits) error {
	_, a, err := s.lookup(id)
	if err != nil {
		return err
	}
	a.SetLimits(limits)
	a.QueueAdmin(actuator.AdminRequest{Op: actuator.AdminConfigure, Limits: limits})
	return nil
}

// Enable queues an Enable admin op for id.
func (s *Supervisor) Enable(id uint8) error {
	_, a, err := s.lookup(id)
	if err != nil {
		return err
	}
	a.QueueAdmin(actuator.AdminRequest{Op: actuator.AdminEnable})
	return nil
}

// Disable queues a Stop admin op for id, optionally clearing a latched
// fault.
func (s *Supervisor) Disable(id uint8, clearFault bool) error {
	_, a, err := s.lookup(id)
	if err != nil {
		return err
	}
	if clearFault {
		a.QueueAdmin(actuator.AdminRequest{Op: actuator.AdminDisableClearFault})
	} else {
		a.QueueAdmin(actuator.AdminRequest{Op: actuator.AdminDisable})
	}
	return nil
}

// Zero queues a SetZero admin op for id.
func (s *Supervisor) Zero(id uint8) error {
	_, a, err := s.lookup(id)
	if err != nil {
		return err
	}
	a.QueueAdmin(actuator.AdminRequest{Op: actuator.AdminZero})
	return nil
}

// registerWaiter creates and installs a channel signaled when a reply frame
// arrives from (transportName, id), used by both ScanBus and ChangeID to turn
// an async frame exchange into a blocking call with a timeout.
func (s *Supervisor) registerWaiter(transportName string, id uint8) chan struct{} {
	ch := make(chan struct{}, 1)
	s.feedbackMu.Lock()
	s.scanWaiters[scanKey{transport: transportName, id: id}] = ch
	s.feedbackMu.Unlock()
	return ch
}

func (s *Supervisor) unregisterWaiter(transportName string, id uint8) {
	s.feedbackMu.Lock()
	delete(s.scanWaiters, scanKey{transport: transportName, id: id})
	s.feedbackMu.Unlock()
}

// ScanCandidate is one id to probe during discovery.
type ScanCandidate struct {
	ID     uint8
	Family codec.Family
}

// ScanBus issues an ObtainID request to each candidate id on transportName
// and returns the set of ids that replied within timeout.
func (s *Supervisor) ScanBus(ctx context.Context, transportName string, candidates []ScanCandidate, timeout time.Duration) (map[uint8]bool, error) {
	t, err := s.transportFor(transportName)
	if err != nil {
		return nil, err
	}

	found := make(map[uint8]bool)
	for _, cand := range candidates {
		ch := s.registerWaiter(transportName, cand.ID)
		id := canservo.ExtendedID{MotorID: cand.ID, Data2: uint16(s.hostID), CommType: canservo.CommObtainID}.Pack()
		if err := t.Send(canservo.Frame{ID: id, DLC: 8}); err != nil {
			s.unregisterWaiter(transportName, cand.ID)
			s.logger.WithError(err).WithField("actuator_id", cand.ID).Warn("scan_bus: send failed")
			continue
		}

		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		select {
		case <-ch:
			found[cand.ID] = true
		case <-waitCtx.Done():
			// timeout: id did not reply, left out of the result set
		}
		cancel()
		s.unregisterWaiter(transportName, cand.ID)
	}
	return found, nil
}

// ChangeID sends a SetID frame moving id to newID on its transport and
// waits up to timeout for a Feedback frame confirming the new id is alive.
// Fails immediately if newID is already assigned on the same transport.
func (s *Supervisor) ChangeID(ctx context.Context, id, newID uint8, timeout time.Duration) error {
	key, a, err := s.lookup(id)
	if err != nil {
		return err
	}

	s.pendingMu.Lock()
	newKey := actuatorKey{transport: key.transport, id: newID}
	if _, exists := s.actuators[newKey]; exists {
		s.pendingMu.Unlock()
		return canservo.NewError(canservo.KindConfig, "change_id", canservo.ErrIDCollision)
	}
	s.pendingMu.Unlock()

	ch := s.registerWaiter(key.transport, newID)
	defer s.unregisterWaiter(key.transport, newID)

	a.QueueAdmin(actuator.AdminRequest{Op: actuator.AdminSetID, NewID: newID})

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-ch:
	case <-waitCtx.Done():
		return canservo.NewError(canservo.KindTimeout, "change_id", canservo.ErrTimeout)
	}

	s.pendingMu.Lock()
	delete(s.actuators, key)
	delete(s.byID, id)
	a.SetID(newID)
	s.actuators[newKey] = a
	s.byID[newID] = append(s.byID[newID], newKey)
	s.pendingMu.Unlock()
	return nil
}

// ReadParameter sends a Read request for paramIndex to id and waits up to
// timeout for the matching response.
func (s *Supervisor) ReadParameter(ctx context.Context, id uint8, paramIndex uint16, timeout time.Duration) (codec.ParamValue, error) {
	key, _, err := s.lookup(id)
	if err != nil {
		return codec.ParamValue{}, err
	}
	t, err := s.transportFor(key.transport)
	if err != nil {
		return codec.ParamValue{}, err
	}

	ch := s.registerReadWaiter(key.transport, id, paramIndex)
	defer s.unregisterReadWaiter(key.transport, id, paramIndex)

	frameID := canservo.ExtendedID{MotorID: id, Data2: uint16(s.hostID), CommType: canservo.CommRead}.Pack()
	if sendErr := t.Send(canservo.Frame{ID: frameID, Data: codec.ReadRequest(paramIndex), DLC: 8}); sendErr != nil {
		return codec.ParamValue{}, canservo.NewError(canservo.KindTransport, "read_parameter", sendErr)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case pv := <-ch:
		return pv, nil
	case <-waitCtx.Done():
		return codec.ParamValue{}, canservo.NewError(canservo.KindTimeout, "read_parameter", canservo.ErrTimeout)
	}
}

// WriteParameter sends a Write request for paramIndex to id. Success is
// signalled by a subsequent Feedback frame, not a direct reply, so this
// returns as soon as the frame is sent.
func (s *Supervisor) WriteParameter(id uint8, paramIndex uint16, value float64) error {
	key, _, err := s.lookup(id)
	if err != nil {
		return err
	}
	t, err := s.transportFor(key.transport)
	if err != nil {
		return err
	}
	frameID := canservo.ExtendedID{MotorID: id, Data2: uint16(s.hostID), CommType: canservo.CommWrite}.Pack()
	var payload [8]byte
	if paramIndex == codec.ParamRunMode {
		payload = codec.WriteRunModeRequest(codec.RunMode(uint8(value)))
	} else {
		payload = codec.WriteRequest(paramIndex, value)
	}
	if sendErr := t.Send(canservo.Frame{ID: frameID, Data: payload, DLC: 8}); sendErr != nil {
		return canservo.NewError(canservo.KindTransport, "write_parameter", sendErr)
	}
	return nil
}

func (s *Supervisor) registerReadWaiter(transportName string, id uint8, paramIndex uint16) chan codec.ParamValue {
	ch := make(chan codec.ParamValue, 1)
	s.feedbackMu.Lock()
	s.readWaiters[readKey{transport: transportName, id: id, paramIndex: paramIndex}] = ch
	s.feedbackMu.Unlock()
	return ch
}

func (s *Supervisor) unregisterReadWaiter(transportName string, id uint8, paramIndex uint16) {
	s.feedbackMu.Lock()
	delete(s.readWaiters, readKey{transport: transportName, id: id, paramIndex: paramIndex})
	s.feedbackMu.Unlock()
}

// satisfyReadWaiter delivers pv to a pending ReadParameter waiter for
// (transportName, id, pv.ParamIndex), if one is registered.
func (s *Supervisor) satisfyReadWaiter(transportName string, id uint8, pv codec.ParamValue) bool {
	s.feedbackMu.Lock()
	ch, ok := s.readWaiters[readKey{transport: transportName, id: id, paramIndex: pv.ParamIndex}]
	s.feedbackMu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- pv:
	default:
	}
	return true
}

// satisfyWaiter signals a pending ScanBus/ChangeID waiter for
// (transportName, id), if one is registered. Called from the receive task.
func (s *Supervisor) satisfyWaiter(transportName string, id uint8) bool {
	s.feedbackMu.Lock()
	ch, ok := s.scanWaiters[scanKey{transport: transportName, id: id}]
	s.feedbackMu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return true
}
