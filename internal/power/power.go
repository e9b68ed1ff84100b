// Package power reads battery and sleep state from the Linux sysfs power
// supply class.
package power

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrNoBattery is returned when no BAT* supply exposes an energy or charge reading.
	ErrNoBattery = errors.New("power: no battery present")

	// ErrNoSleepMode is returned when mem_sleep has no bracketed active mode.
	ErrNoSleepMode = errors.New("power: active sleep mode not found")
)

var activeModeRe = regexp.MustCompile(`\[(.*?)\]`)

// Reader is the host power-state surface the recorder depends on.
type Reader interface {
	EnergyNow() (uint64, error)
	EnergyFull() (uint64, error)
	OnAC() (bool, error)
	SleepMode() (string, error)
	BiosVersion(ctx context.Context) (string, error)
}

// SysfsReader implements Reader over /sys.
type SysfsReader struct {
	SupplyDir     string
	MemSleepPath  string
	DmidecodePath string
}

// NewSysfsReader creates a reader rooted at the given paths.
func NewSysfsReader(supplyDir, memSleepPath, dmidecodePath string) *SysfsReader {
	return &SysfsReader{
		SupplyDir:     supplyDir,
		MemSleepPath:  memSleepPath,
		DmidecodePath: dmidecodePath,
	}
}

// EnergyNow returns the first battery's remaining energy (µWh), falling back
// to remaining charge (µAh) for batteries that only report charge.
func (r *SysfsReader) EnergyNow() (uint64, error) {
	return r.batteryAttr("energy_now", "charge_now")
}

// EnergyFull returns the first battery's last full capacity in the same unit
// as EnergyNow.
func (r *SysfsReader) EnergyFull() (uint64, error) {
	return r.batteryAttr("energy_full", "charge_full")
}

// OnAC reports whether a mains adapter is online. Hosts without an AC*
// supply are treated as on AC.
func (r *SysfsReader) OnAC() (bool, error) {
	adapters, err := r.supplies("AC*")
	if err != nil {
		return false, err
	}
	if len(adapters) == 0 {
		return true, nil
	}
	v, err := readUint(filepath.Join(adapters[0], "online"))
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// SleepMode returns the active mode from mem_sleep, e.g. "deep" or "s2idle".
func (r *SysfsReader) SleepMode() (string, error) {
	raw, err := os.ReadFile(r.MemSleepPath)
	if err != nil {
		return "", err
	}
	m := activeModeRe.FindSubmatch(raw)
	if m == nil {
		return "", ErrNoSleepMode
	}
	return string(m[1]), nil
}

// BiosVersion asks dmidecode for the firmware version string.
func (r *SysfsReader) BiosVersion(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, r.DmidecodePath, "--string", "bios-version").Output()
	if err != nil {
		return "", fmt.Errorf("dmidecode: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *SysfsReader) batteryAttr(attrs ...string) (uint64, error) {
	batteries, err := r.supplies("BAT*")
	if err != nil {
		return 0, err
	}
	for _, bat := range batteries {
		for _, attr := range attrs {
			v, err := readUint(filepath.Join(bat, attr))
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return 0, err
			}
			return v, nil
		}
	}
	return 0, ErrNoBattery
}

func (r *SysfsReader) supplies(pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.SupplyDir, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func readUint(path string) (uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}
