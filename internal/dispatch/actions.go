package dispatch

import "github.com/bbernstein/lacylights-console/internal/command"

// WindowResult is returned by window capabilities.
type WindowResult struct {
	Success    bool   `json:"success"`
	WindowName string `json:"windowName,omitempty"`
	Message    string `json:"message,omitempty"`
}

// VideoResult is returned by video transport capabilities.
type VideoResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Actions is the capability table the dispatcher calls into. Every field is
// optional; a nil capability makes the commands that need it fail with a
// "not available" result.
type Actions struct {
	// Selection and programmer
	FixtureIDs          func() []string
	SetSelectedFixtures func(ids []string) error
	SelectedFixtures    func() []string
	AvailableChannels   func() []string
	SetChannelValue     func(channel string, value int) error
	SetEncoderValue     func(channel string, delta int) (int, error)

	// System
	Clear     func() error
	Blackout  func() (bool, error)
	Locate    func() error
	Undo      func() error
	Redo      func() error
	Help      func() string
	SetMaster func(value int) error

	// Feature sets and presets
	ActiveFeatureSet func() string
	SetFeatureSet    func(name string) error
	RecallPreset     func(featureSet string, index int) (bool, error)
	RecordPreset     func(featureSet string, index int, name string) error
	UpdatePreset     func(featureSet string, index int) error

	// Cues
	RecallCue   func(number int) error
	RecordCue   func(number int, name string) (int, error)
	UpdateCue   func(number int) (int, error)
	GoCue       func(number int) (int, error)
	SetCueTime  func(number int, seconds float64) error
	SetFadeTime func(seconds float64) error

	// Groups and views
	RecallGroup             func(number int) error
	RecordGroup             func(number int, name string) error
	UpdateGroup             func(number int) error
	RecordGroupFromExecutor func(group, executor int, name string) error
	SetGroupMode            func(number int, mode string) error
	SetGroupPriority        func(number, priority int) error
	SetGroupIntensity       func(number, percent int) error
	SetGroupActive          func(number int, active bool) error
	SetGroupValue           func(number int, channel string, value int) error
	ApplyPresetToGroup      func(number int, featureSet string, index int) error
	RecallView              func(number int) error
	RecordView              func(number int, name string) error

	// Executors
	Executor       func(number int, action string) error
	RecordExecutor func(number int, name string) error

	// Programmer tools
	Fan       func(mode, axis string) error
	Highlight func(mode string) (bool, error)

	// Windows and video
	OpenWindow   func(number int) WindowResult
	CloseWindow  func(number int) WindowResult
	RouteWindow  func(source, dest command.WindowRef) error
	VideoPlay    func(input, output int) VideoResult
	VideoPause   func(input int) VideoResult
	VideoStop    func(input int) VideoResult
	VideoRestart func(input int) VideoResult
	VideoLoop    func(input int, on bool) VideoResult
	VideoSpeed   func(input int, speed float64) VideoResult
	RouteNDI     func(source string, output int) error

	// Clock, timer and conditions
	Clock             func(action string) error
	Timer             func(action string, seconds float64) error
	EvaluateCondition func(cond command.Condition) (bool, error)

	// Patch and delete. Delete capabilities return a message because they
	// may only arm a confirmation.
	PatchFixture  func(number int, fixtureType string, universe, address int, name string) error
	DeleteFixture func(number int) (string, error)
	DeleteGroup   func(number int) (string, error)
	DeleteCue     func(number int) (string, error)
	DeletePreset  func(featureSet string, index int) (string, error)
}
