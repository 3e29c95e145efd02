package app

import (
	"log"
	"time"

	"github.com/ayusman/mudra/internal/cursor"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// run drives the tick loop. The loop follows the capture rate: full
// speed while a hand is in view, throttled after the idle timeout.
func (a *App) run() {
	defer close(a.doneCh)

	interval := a.tickInterval(a.idleMode)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.tick(time.Now())
			if next := a.tickInterval(a.idleMode); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// tick runs one pipeline pass: swap in pending config, pull the newest
// frame, detect, and feed the gesture engine.
func (a *App) tick(now time.Time) {
	a.applyPending()

	if a.Paused() {
		a.handlePause(now)
		return
	}
	a.pauseHandled = false

	session := a.Session()
	if session != a.lastSession {
		// Session was rebuilt by a camera restart; frame sequence
		// numbers start over.
		a.lastSession = session
		a.lastSeq = 0
	}

	frame, seq, ok := session.LatestFrame()
	if !ok || seq == a.lastSeq {
		if ok {
			frame.Close()
		}
		a.dispatcher.Flush(now)
		return
	}
	a.lastSeq = seq

	hands, err := a.det.Detect(&frame)
	frame.Close()
	if err != nil {
		log.Printf("Detection failed: %v", err)
		a.dispatcher.Flush(now)
		return
	}

	if len(hands) == 0 {
		a.tickWithoutHand(now)
	} else {
		a.tickWithHand(&hands[0], now)
	}
	a.dispatcher.Flush(now)

	a.mu.Lock()
	a.frameCount++
	a.mu.Unlock()
}

// handlePause runs once per pause: open gestures are closed out, held
// buttons released, and tracking state cleared so resume starts fresh.
func (a *App) handlePause(now time.Time) {
	if a.pauseHandled {
		return
	}
	a.pauseHandled = true

	for _, ev := range a.engine.Reset(now) {
		a.dispatchEvent(ev, a.lastPX, a.lastPY)
	}
	a.dispatcher.ReleaseAll()
	a.smoother.Reset()
	a.mapper.Reset()

	a.mu.Lock()
	a.tracking = false
	a.mu.Unlock()
}

// tickWithoutHand counts empty frames toward tracking loss and the idle
// timeout.
func (a *App) tickWithoutHand(now time.Time) {
	a.idleTicks++

	if a.smoother.Miss() {
		// Gap budget exhausted: close out any in-flight gesture at
		// the last known cursor position.
		for _, ev := range a.engine.Reset(now) {
			a.dispatchEvent(ev, a.lastPX, a.lastPY)
		}
		a.mapper.Reset()

		a.mu.Lock()
		a.tracking = false
		a.mu.Unlock()
		log.Println("Hand tracking lost")
	}

	if !a.idleMode && a.idleTicks >= a.cfg.System.IdleTimeoutFrames {
		a.idleMode = true
		a.Session().SetTargetFPS(a.cfg.System.IdleFps)
		log.Printf("Switched to idle mode (%d fps)", a.cfg.System.IdleFps)
	}
}

// tickWithHand runs the detection result through smoothing, gesture
// classification and cursor mapping.
func (a *App) tickWithHand(hand *detector.HandLandmarks, now time.Time) {
	a.idleTicks = 0

	if a.idleMode {
		a.idleMode = false
		a.Session().SetTargetFPS(a.cfg.System.ActiveFps)
		log.Printf("Switched to active mode (%d fps)", a.cfg.System.ActiveFps)
	}

	smoothed := a.smoother.Observe(*hand)
	tip := smoothed.Points[detector.IndexTip]
	px, py := a.mapper.Map(tip.X, tip.Y)
	a.lastPX, a.lastPY = px, py

	for _, ev := range a.engine.Process(&smoothed, now) {
		x, y := px, py
		switch ev.Type {
		case gesture.PressStart:
			// Remember where the pinch began so a later click lands
			// there, not where the hand drifted during release.
			a.pressPixels[ev.Channel] = [2]int{px, py}
		case gesture.Click:
			if origin, ok := a.pressPixels[ev.Channel]; ok {
				x, y = origin[0], origin[1]
			}
			delete(a.pressPixels, ev.Channel)
		case gesture.DragStart, gesture.DragEnd:
			delete(a.pressPixels, ev.Channel)
		}
		a.dispatchEvent(ev, x, y)
	}

	a.mu.Lock()
	a.tracking = true
	a.handZone = cursor.ZoneOf(tip.X, tip.Y)
	a.edgeDist = cursor.EdgeProximity(tip.X, tip.Y)
	a.mu.Unlock()
}

// dispatchEvent forwards one gesture event to the feed and the
// dispatcher, counting discrete gestures along the way.
func (a *App) dispatchEvent(ev gesture.Event, x, y int) {
	switch ev.Type {
	case gesture.Click, gesture.DragStart,
		gesture.SwipeUp, gesture.SwipeDown, gesture.SwipeLeft, gesture.SwipeRight:
		a.mu.Lock()
		a.gestureCount++
		a.mu.Unlock()
	}
	a.emit(ev)
	a.dispatcher.Dispatch(ev, x, y)
}

// applyPending swaps in a queued configuration between ticks.
func (a *App) applyPending() {
	a.mu.Lock()
	pending := a.pendingCfg
	a.pendingCfg = nil
	if pending != nil {
		a.cfg = pending
	}
	a.mu.Unlock()
	if pending == nil {
		return
	}

	a.smoother.SetConfig(pending.Tracking.SmoothingFactor, pending.Tracking.MaxGapFrames)
	a.engine.SetConfig(gestureConfig(pending))
	a.mapper.SetConfig(cursorConfig(pending, a.input))
	a.dispatcher.SetConfig(actionConfig(pending))

	if a.idleMode {
		a.Session().SetTargetFPS(pending.System.IdleFps)
	} else {
		a.Session().SetTargetFPS(pending.System.ActiveFps)
	}
	log.Println("Configuration applied")
}

// tickInterval converts the configured frame rate for the given mode
// into a tick period.
func (a *App) tickInterval(idle bool) time.Duration {
	a.mu.RLock()
	cfg := a.cfg
	a.mu.RUnlock()

	fps := cfg.System.ActiveFps
	if idle {
		fps = cfg.System.IdleFps
	}
	if fps <= 0 {
		fps = 30
	}
	return time.Second / time.Duration(fps)
}
