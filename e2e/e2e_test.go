package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/testdata"
)

// testConfig tunes the defaults for a fast pipeline driven by scripted
// frames: no landmark smoothing, a hold time far above anything a
// scripted tap can reach, and a high tick rate.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Camera.WarmupFrames = 1
	cfg.Tracking.SmoothingFactor = 1.0
	cfg.Gestures.DebounceMs = 50
	cfg.Gestures.HoldTimeMs = 2000
	cfg.Cursor.ScreenWidth = 1920
	cfg.Cursor.ScreenHeight = 1080
	cfg.Cursor.InvertX = false
	cfg.Actions.ClickIntervalMs = 0
	cfg.System.ActiveFps = 100
	cfg.System.IdleFps = 20
	return cfg
}

func testFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		mat := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
		frames[i] = &mat
		t.Cleanup(func() { mat.Close() })
	}
	return frames
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func countOp(ops []string, op string) int {
	n := 0
	for _, o := range ops {
		if o == op {
			n++
		}
	}
	return n
}

func getJSON(t *testing.T, client *http.Client, url string, into interface{}) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("GET %s decode error = %v", url, err)
	}
}

type controlState struct {
	Running bool `json:"running"`
	Paused  bool `json:"paused"`
}

func postControl(t *testing.T, client *http.Client, base, command string) controlState {
	t.Helper()
	resp, err := client.Post(base+"/api/control/"+command, "application/json", nil)
	if err != nil {
		t.Fatalf("POST control/%s error = %v", command, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST control/%s status = %d, want %d", command, resp.StatusCode, http.StatusOK)
	}
	var state controlState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("POST control/%s decode error = %v", command, err)
	}
	return state
}

func doPut(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build PUT %s error = %v", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT %s error = %v", url, err)
	}
	return resp
}

// setSession scripts the detector with a recorded landmark session.
func setSession(t *testing.T, det *detector.MockDetector, name string) {
	t.Helper()
	sess, err := testdata.LoadSession(name)
	if err != nil {
		t.Fatalf("LoadSession(%s) error = %v", name, err)
	}
	frames, err := sess.Landmarks()
	if err != nil {
		t.Fatalf("Landmarks() error = %v", err)
	}
	det.SetSequence(frames)
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()

	st, err := store.New(filepath.Join(tmpDir, "mudra.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()
	if err := st.Bindings().SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}

	cam := capture.NewMockCamera(testFrames(t, 4), true)
	det := detector.NewMockDetector()
	input := action.NewMockInput(1920, 1080)

	application, err := app.New(app.Config{
		Config:   testConfig(),
		Store:    st,
		Camera:   cam,
		Detector: det,
		Input:    input,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Stop()

	cfgPath := filepath.Join(tmpDir, "config.toml")
	srv := server.New(server.Config{
		ConfigPath: cfgPath,
		Store:      st,
		App:        application,
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	t.Run("DefaultBindingsOverREST", func(t *testing.T) {
		var list struct {
			Bindings []struct {
				ID      string `json:"id"`
				Gesture string `json:"gesture"`
				Kind    string `json:"kind"`
				Value   string `json:"value"`
				Enabled bool   `json:"enabled"`
			} `json:"bindings"`
		}
		getJSON(t, client, ts.URL+"/api/bindings", &list)

		if len(list.Bindings) != 8 {
			t.Fatalf("got %d seeded bindings, want 8", len(list.Bindings))
		}
		found := false
		for _, b := range list.Bindings {
			if b.Gesture == "pinch" && b.Kind == "mouse" && b.Value == "left-click" && b.Enabled {
				found = true
			}
		}
		if !found {
			t.Error("seeded bindings missing enabled pinch -> left-click")
		}
	})

	t.Run("StartPipeline", func(t *testing.T) {
		if err := application.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitFor(t, "frames to flow", func() bool {
			var status app.Status
			getJSON(t, client, ts.URL+"/api/status", &status)
			return status.Running && status.CameraConnected && status.FrameCount > 0
		})
	})

	t.Run("TapSessionClicksThroughPipeline", func(t *testing.T) {
		setSession(t, det, "tap")
		waitFor(t, "tap to dispatch a click", func() bool {
			return countOp(input.Operations(), "click left") == 1
		})

		ops := input.Operations()
		if countOp(ops, "move 1114 378") == 0 {
			t.Errorf("operations = %v, want a move to the pinch origin", ops)
		}
	})

	t.Run("ClickRecordedToHistory", func(t *testing.T) {
		var list struct {
			Events []struct {
				Type    string `json:"type"`
				Channel string `json:"channel"`
				X       int    `json:"x"`
				Y       int    `json:"y"`
			} `json:"events"`
		}
		getJSON(t, client, ts.URL+"/api/events", &list)

		if len(list.Events) != 1 {
			t.Fatalf("got %d history events, want 1", len(list.Events))
		}
		ev := list.Events[0]
		if ev.Type != "click" || ev.Channel != "left" {
			t.Errorf("recorded event = %s/%s, want click/left", ev.Type, ev.Channel)
		}
		if ev.X != 1114 || ev.Y != 378 {
			t.Errorf("recorded position = (%d, %d), want (1114, 378)", ev.X, ev.Y)
		}
	})

	t.Run("LiveFeedDeliversStatus", func(t *testing.T) {
		wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("feed dial error = %v", err)
		}
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("feed read error = %v", err)
		}

		var msg struct {
			Type   string      `json:"type"`
			Status *app.Status `json:"status"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("feed decode error = %v", err)
		}
		if msg.Type != "status" || msg.Status == nil {
			t.Errorf("first feed message = %s, want a status snapshot", data)
		}
	})

	t.Run("RebindSwipeAndDispatch", func(t *testing.T) {
		var list struct {
			Bindings []struct {
				ID      string `json:"id"`
				Gesture string `json:"gesture"`
			} `json:"bindings"`
		}
		getJSON(t, client, ts.URL+"/api/bindings", &list)

		var swipeID string
		for _, b := range list.Bindings {
			if b.Gesture == "swipe_up" {
				swipeID = b.ID
			}
		}
		if swipeID == "" {
			t.Fatal("swipe_up binding not found")
		}

		resp := doPut(t, client, ts.URL+"/api/bindings/"+swipeID, `{"value": "ctrl+t"}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("rebind status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		// The mutation callback reloads the dispatcher table, so the
		// very next swipe fires the new combo.
		setSession(t, det, "swipe_up")
		waitFor(t, "swipe to tap the rebound key", func() bool {
			return countOp(input.Operations(), "keytap t ctrl") == 1
		})
	})

	t.Run("PauseResumeOverControlSurface", func(t *testing.T) {
		if state := postControl(t, client, ts.URL, "pause"); !state.Paused {
			t.Error("control/pause left paused = false")
		}
		var status app.Status
		getJSON(t, client, ts.URL+"/api/status", &status)
		if !status.Paused {
			t.Error("status paused = false after pause")
		}

		if state := postControl(t, client, ts.URL, "toggle"); state.Paused {
			t.Error("control/toggle from paused left paused = true")
		}
		if state := postControl(t, client, ts.URL, "resume"); state.Paused {
			t.Error("control/resume left paused = true")
		}
	})

	t.Run("SettingsRoundTrip", func(t *testing.T) {
		var settings struct {
			Config *config.Config `json:"config"`
		}
		getJSON(t, client, ts.URL+"/api/settings", &settings)
		if settings.Config == nil || settings.Config.Cursor.Sensitivity != 1.0 {
			t.Fatalf("settings config = %+v, want sensitivity 1.0", settings.Config)
		}

		resp := doPut(t, client, ts.URL+"/api/settings", `{"cursor": {"sensitivity": 2.0}}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("settings update status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		waitFor(t, "config change to apply", func() bool {
			return application.CurrentConfig().Cursor.Sensitivity == 2.0
		})
		if _, err := os.Stat(cfgPath); err != nil {
			t.Errorf("config file not persisted: %v", err)
		}

		// Out-of-range values are rejected and the active config keeps
		// the last accepted state.
		resp = doPut(t, client, ts.URL+"/api/settings", `{"gestures": {"pinch_threshold": 0.5}}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("invalid settings status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
		if got := application.CurrentConfig().Gestures.PinchThreshold; got != 0.05 {
			t.Errorf("PinchThreshold = %v after rejected update, want 0.05", got)
		}
	})

	t.Run("StopStartOverControlSurface", func(t *testing.T) {
		if state := postControl(t, client, ts.URL, "stop"); state.Running {
			t.Error("control/stop left running = true")
		}
		var status app.Status
		getJSON(t, client, ts.URL+"/api/status", &status)
		if status.Running {
			t.Error("status running = true after stop")
		}

		if state := postControl(t, client, ts.URL, "start"); !state.Running {
			t.Error("control/start left running = false")
		}
		waitFor(t, "restarted pipeline to reconnect", func() bool {
			var status app.Status
			getJSON(t, client, ts.URL+"/api/status", &status)
			return status.Running && status.CameraConnected
		})
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("health error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after workflow: status %d", resp.StatusCode)
		}
	})
}

// replayConfig is the gesture timing used for deterministic session
// replays with a virtual clock.
func replayConfig() gesture.Config {
	return gesture.Config{
		PinchThreshold:    0.05,
		Debounce:          50 * time.Millisecond,
		HoldTime:          200 * time.Millisecond,
		ClickRelease:      200 * time.Millisecond,
		VelocityThreshold: 0.01,
	}
}

// replay feeds a recorded session through a fresh engine, stamping
// frames at the session's own capture rate.
func replay(t *testing.T, eng *gesture.Engine, name string) []gesture.Event {
	t.Helper()
	sess, err := testdata.LoadSession(name)
	if err != nil {
		t.Fatalf("LoadSession(%s) error = %v", name, err)
	}
	frames, err := sess.Landmarks()
	if err != nil {
		t.Fatalf("Landmarks() error = %v", err)
	}

	base := time.Now()
	var events []gesture.Event
	for i, hands := range frames {
		now := base.Add(time.Duration(i) * sess.Interval())
		var hand *detector.HandLandmarks
		if len(hands) > 0 {
			hand = &hands[0]
		}
		events = append(events, eng.Process(hand, now)...)
	}
	return events
}

func countType(events []gesture.Event, typ gesture.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestE2E_SessionReplay(t *testing.T) {
	tests := []struct {
		session string
		wants   map[gesture.EventType]int
		clickOn gesture.Channel
	}{
		{
			session: "tap",
			wants: map[gesture.EventType]int{
				gesture.PressStart: 1,
				gesture.Click:      1,
				gesture.DragStart:  0,
				gesture.DragEnd:    0,
			},
			clickOn: gesture.ChannelLeft,
		},
		{
			session: "middle_tap",
			wants: map[gesture.EventType]int{
				gesture.PressStart: 1,
				gesture.Click:      1,
				gesture.DragStart:  0,
			},
			clickOn: gesture.ChannelRight,
		},
		{
			session: "drag",
			wants: map[gesture.EventType]int{
				gesture.PressStart: 1,
				gesture.DragStart:  1,
				gesture.DragMove:   4,
				gesture.DragEnd:    1,
				gesture.Click:      0,
			},
		},
		{
			session: "swipe_up",
			wants: map[gesture.EventType]int{
				gesture.SwipeUp:    1,
				gesture.SwipeDown:  0,
				gesture.PressStart: 0,
				gesture.Click:      0,
			},
		},
		{
			session: "tracking_loss",
			wants: map[gesture.EventType]int{
				gesture.PressStart: 1,
				gesture.DragStart:  1,
				gesture.DragEnd:    1,
				gesture.Click:      0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.session, func(t *testing.T) {
			eng := gesture.NewEngine(replayConfig())
			events := replay(t, eng, tt.session)

			for typ, want := range tt.wants {
				if got := countType(events, typ); got != want {
					t.Errorf("%s count = %d, want %d (events: %v)", typ, got, want, events)
				}
			}
			if eng.Dragging() {
				t.Error("Dragging() = true after session end")
			}
			if tt.clickOn != "" {
				for _, ev := range events {
					if ev.Type == gesture.Click && ev.Channel != tt.clickOn {
						t.Errorf("click channel = %s, want %s", ev.Channel, tt.clickOn)
					}
				}
			}
		})
	}
}
