package effect

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/scheerer/companion-lights/lights"
)

// ErrMalformedCommand is returned for any command that cannot be parsed. The
// channel is left untouched.
var ErrMalformedCommand = errors.New("malformed light command")

type CommandKind int

const (
	CommandOff CommandKind = iota
	CommandRainbow
	CommandHex
)

func (k CommandKind) String() string {
	switch k {
	case CommandOff:
		return "off"
	case CommandRainbow:
		return "rainbow"
	case CommandHex:
		return "hex"
	default:
		return "unknown"
	}
}

// Command is a parsed light command. Brightness is already clamped to 0-100.
type Command struct {
	Kind       CommandKind
	Color      lights.Color
	Brightness uint8
	Breathe    bool
}

const (
	hexMarker        = "Hex("
	brightnessMarker = "Brightness("
	fadeMarker       = "Fade("
)

// ParseCommand understands three shapes:
//
//	off
//	rainbow [N]
//	Hex(RRGGBB) Brightness(N) Fade(0|1)
//
// The three hex-command markers may appear in any order but all are required.
func ParseCommand(command string) (Command, error) {
	command = strings.TrimSpace(command)

	if command == "off" {
		return Command{Kind: CommandOff}, nil
	}

	if fields := strings.Fields(command); len(fields) > 0 && fields[0] == "rainbow" {
		return parseRainbow(fields)
	}

	if strings.Contains(command, hexMarker) || strings.Contains(command, brightnessMarker) || strings.Contains(command, fadeMarker) {
		return parseHex(command)
	}

	return Command{}, errors.Wrapf(ErrMalformedCommand, "unrecognized command %q", command)
}

func parseRainbow(fields []string) (Command, error) {
	cmd := Command{Kind: CommandRainbow, Brightness: maxBrightness}
	switch len(fields) {
	case 1:
		return cmd, nil
	case 2:
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{}, errors.Wrapf(ErrMalformedCommand, "rainbow brightness %q", fields[1])
		}
		cmd.Brightness = clampBrightness(n)
		return cmd, nil
	default:
		return Command{}, errors.Wrapf(ErrMalformedCommand, "rainbow takes at most one argument, got %d", len(fields)-1)
	}
}

// markerValue returns the text between marker and the next closing parenthesis.
func markerValue(command, marker string) (string, error) {
	start := strings.Index(command, marker)
	if start == -1 {
		return "", errors.Wrapf(ErrMalformedCommand, "missing %s)", marker)
	}
	start += len(marker)
	end := strings.IndexByte(command[start:], ')')
	if end == -1 {
		return "", errors.Wrapf(ErrMalformedCommand, "unterminated %s", marker)
	}
	return command[start : start+end], nil
}

func parseHex(command string) (Command, error) {
	hexStr, err := markerValue(command, hexMarker)
	if err != nil {
		return Command{}, err
	}
	brightStr, err := markerValue(command, brightnessMarker)
	if err != nil {
		return Command{}, err
	}
	fadeStr, err := markerValue(command, fadeMarker)
	if err != nil {
		return Command{}, err
	}

	if len(hexStr) != 6 {
		return Command{}, errors.Wrapf(ErrMalformedCommand, "hex color %q must be six digits", hexStr)
	}
	rgb, err := strconv.ParseUint(hexStr, 16, 32)
	if err != nil {
		return Command{}, errors.Wrapf(ErrMalformedCommand, "hex color %q", hexStr)
	}

	bright, err := strconv.Atoi(strings.TrimSpace(brightStr))
	if err != nil {
		return Command{}, errors.Wrapf(ErrMalformedCommand, "brightness %q", brightStr)
	}

	var breathe bool
	switch strings.TrimSpace(fadeStr) {
	case "0":
	case "1":
		breathe = true
	default:
		return Command{}, errors.Wrapf(ErrMalformedCommand, "fade %q must be 0 or 1", fadeStr)
	}

	return Command{
		Kind: CommandHex,
		Color: lights.Color{
			Red:   uint8(rgb >> 16),
			Green: uint8(rgb >> 8),
			Blue:  uint8(rgb),
		},
		Brightness: clampBrightness(bright),
		Breathe:    breathe,
	}, nil
}

// Apply parses command and applies it at time now. A malformed command returns
// an error wrapping ErrMalformedCommand and leaves the channel unchanged.
func (c *Channel) Apply(command string, now uint32) error {
	cmd, err := ParseCommand(command)
	if err != nil {
		return err
	}
	c.Execute(cmd, now)
	return nil
}

// Execute applies an already parsed command.
func (c *Channel) Execute(cmd Command, now uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.state
	effective := s.EffectiveBrightness()

	switch cmd.Kind {
	case CommandOff:
		s.BreathingEnabled = false
		s.FadeEnabled = true
		s.FadeValue = effective
		s.FadeTarget = 0
		s.LastFade = now

	case CommandRainbow:
		s.RainbowEnabled = true
		s.RainbowPhase = 0
		s.RainbowHalfStep = false
		s.RainbowBrightness = cmd.Brightness
		s.BreathingEnabled = false
		s.FadeEnabled = true
		s.FadeValue = effective
		s.FadeTarget = cmd.Brightness
		s.LastFade = now

	case CommandHex:
		if s.RainbowEnabled {
			// Pixel 0 always shows the wheel at the current phase.
			s.Current = Wheel(s.RainbowPhase)
		}
		s.Target = cmd.Color
		s.Brightness = cmd.Brightness
		s.RainbowEnabled = false
		s.ColorTransitioning = true

		s.FadeEnabled = true
		s.FadeValue = effective
		s.LastFade = now
		if cmd.Breathe {
			s.BreathingEnabled = true
			s.BreathingCeiling = cmd.Brightness
			// Start toward whichever end keeps the first breath continuous.
			if effective < cmd.Brightness/2 {
				s.FadeTarget = cmd.Brightness
			} else {
				s.FadeTarget = 0
			}
		} else {
			s.BreathingEnabled = false
			s.FadeTarget = cmd.Brightness
		}
	}

	logger.Debugf("%s: applied %s command, effective brightness %d -> %d", c.name, cmd.Kind, effective, s.FadeTarget)
}
