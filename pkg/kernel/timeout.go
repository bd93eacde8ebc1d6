package kernel

// TimeOut remembers when a blocking call started so that a retry can wait
// only for the remaining ticks, across tick count overflows.
type TimeOut struct {
	overflowCount  uint
	timeOnEntering Tick
}

func (s *Scheduler) SetTimeOut(to *TimeOut) {
	s.enter()
	defer s.exit()

	s.setTimeOutLocked(to)
}

func (s *Scheduler) setTimeOutLocked(to *TimeOut) {
	to.overflowCount = s.overflows
	to.timeOnEntering = s.tickCount
}

// CheckForTimeOut reports whether the wait described by to and ticksToWait
// has expired. Otherwise it lowers *ticksToWait to the remaining ticks and
// restarts to from now.
func (s *Scheduler) CheckForTimeOut(to *TimeOut, ticksToWait *Tick) bool {
	s.enter()
	defer s.exit()

	now := s.tickCount
	elapsed := now - to.timeOnEntering

	switch {
	case *ticksToWait == MaxDelay:
		return false
	case s.overflows != to.overflowCount && now >= to.timeOnEntering:
		// The tick count wrapped and passed the entry time again, so at
		// least a full cycle elapsed.
		*ticksToWait = 0
		return true
	case elapsed < *ticksToWait:
		*ticksToWait -= elapsed
		s.setTimeOutLocked(to)
		return false
	}

	*ticksToWait = 0
	return true
}
