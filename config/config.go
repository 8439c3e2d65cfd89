// Package config holds the settings the kernel is started with.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

// Environment variables read by FromEnv.
const (
	EnvNumPhysPages   = "VMSIM_NUM_PHYS_PAGES"
	EnvPageSize       = "VMSIM_PAGE_SIZE"
	EnvPolicy         = "VMSIM_POLICY"
	EnvLayout         = "VMSIM_LAYOUT"
	EnvOuterTableSize = "VMSIM_OUTER_TABLE_SIZE"
	EnvInnerTableSize = "VMSIM_INNER_TABLE_SIZE"
	EnvUserStackSize  = "VMSIM_USER_STACK_SIZE"
	EnvVerbose        = "VMSIM_VERBOSE"
	EnvSeed           = "VMSIM_SEED"
	EnvSwapDir        = "VMSIM_SWAP_DIR"
	EnvRecordPath     = "VMSIM_RECORD_PATH"
	EnvMonitorPort    = "VMSIM_MONITOR_PORT"
)

// Config is the configuration of one kernel.
type Config struct {
	NumPhysPages   int              `json:"num_phys_pages"`
	PageSize       int              `json:"page_size"`
	Policy         replacement.Kind `json:"policy"`
	Layout         vm.Layout        `json:"layout"`
	OuterTableSize int              `json:"outer_table_size"`
	InnerTableSize int              `json:"inner_table_size"`
	UserStackSize  int              `json:"user_stack_size"`
	Verbose        bool             `json:"verbose"`
	Seed           int64            `json:"seed"`

	// SwapDir is where swap files live. Empty keeps them in memory.
	SwapDir string `json:"swap_dir"`

	// RecordPath enables fault recording into RecordPath + ".sqlite3".
	RecordPath string `json:"record_path"`

	// MonitorPort starts the monitoring server. Zero disables it.
	MonitorPort int `json:"monitor_port"`
}

// Default returns 32 frames of 128 bytes with demand paging and flat tables.
func Default() Config {
	return Config{
		NumPhysPages:   32,
		PageSize:       128,
		Policy:         replacement.Demand,
		Layout:         vm.LayoutFlat,
		OuterTableSize: 64,
		InnerTableSize: 32,
		UserStackSize:  1024,
		Seed:           1,
	}
}

// FromEnv starts from Default, applies the given .env files in order, and
// then the process environment. Variables already in the environment win
// over the files.
func FromEnv(files ...string) (Config, error) {
	values := map[string]string{}

	if len(files) > 0 {
		read, err := godotenv.Read(files...)
		if err != nil {
			return Config{}, fmt.Errorf("reading env files: %w", err)
		}

		values = read
	}

	for _, key := range envKeys() {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	c := Default()
	if err := c.apply(values); err != nil {
		return Config{}, err
	}

	return c, nil
}

func envKeys() []string {
	return []string{
		EnvNumPhysPages, EnvPageSize, EnvPolicy, EnvLayout,
		EnvOuterTableSize, EnvInnerTableSize, EnvUserStackSize,
		EnvVerbose, EnvSeed, EnvSwapDir, EnvRecordPath, EnvMonitorPort,
	}
}

func (c *Config) apply(values map[string]string) error {
	var errs []error

	setInt := func(key string, dst *int) {
		if v, ok := values[key]; ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}

			*dst = n
		}
	}

	setInt(EnvNumPhysPages, &c.NumPhysPages)
	setInt(EnvPageSize, &c.PageSize)
	setInt(EnvOuterTableSize, &c.OuterTableSize)
	setInt(EnvInnerTableSize, &c.InnerTableSize)
	setInt(EnvUserStackSize, &c.UserStackSize)
	setInt(EnvMonitorPort, &c.MonitorPort)

	if v, ok := values[EnvPolicy]; ok {
		kind, err := replacement.ParseKind(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvPolicy, err))
		}

		c.Policy = kind
	}

	if v, ok := values[EnvLayout]; ok {
		layout, err := vm.ParseLayout(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvLayout, err))
		}

		c.Layout = layout
	}

	if v, ok := values[EnvVerbose]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvVerbose, err))
		}

		c.Verbose = b
	}

	if v, ok := values[EnvSeed]; ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvSeed, err))
		}

		c.Seed = n
	}

	if v, ok := values[EnvSwapDir]; ok {
		c.SwapDir = v
	}

	if v, ok := values[EnvRecordPath]; ok {
		c.RecordPath = v
	}

	return errors.Join(errs...)
}

// Validate reports every setting the kernel cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.NumPhysPages <= 0 {
		errs = append(errs, fmt.Errorf("number of physical pages must be positive, got %d",
			c.NumPhysPages))
	}

	if c.PageSize <= 0 || c.PageSize%4 != 0 {
		errs = append(errs, fmt.Errorf("page size must be a positive multiple of 4, got %d",
			c.PageSize))
	}

	if c.UserStackSize < 0 {
		errs = append(errs, fmt.Errorf("user stack size must not be negative, got %d",
			c.UserStackSize))
	}

	if c.Layout == vm.LayoutTwoLevel &&
		(c.OuterTableSize <= 0 || c.InnerTableSize <= 0) {
		errs = append(errs, fmt.Errorf("two-level table sizes must be positive, got %d x %d",
			c.OuterTableSize, c.InnerTableSize))
	}

	if c.Layout != vm.LayoutFlat && c.Layout != vm.LayoutTwoLevel {
		errs = append(errs, fmt.Errorf("unknown layout %s", c.Layout))
	}

	if c.Policy != replacement.Demand &&
		c.Policy != replacement.FIFO &&
		c.Policy != replacement.Random {
		errs = append(errs, fmt.Errorf("unknown policy %s", c.Policy))
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		errs = append(errs, fmt.Errorf("monitor port out of range: %d", c.MonitorPort))
	}

	return errors.Join(errs...)
}

// Banner returns the lines printed when a program starts.
func (c Config) Banner() []string {
	lines := []string{}

	if c.Verbose {
		lines = append(lines, "Extra Input enabled.")
	}

	lines = append(lines,
		fmt.Sprintf("Number of Physical Pages: %d", c.NumPhysPages),
		fmt.Sprintf("Page Size: %d bytes.", c.PageSize),
		fmt.Sprintf("Page replacement algorithm chosen: %s.", c.Policy.Describe()),
		fmt.Sprintf("Page table layout: %s.", c.Layout),
	)

	return lines
}
