package file

import (
	"time"

	"github.com/custodia-labs/tickersync/internal/core/domain"
)

// fileConfig mirrors config.toml. Optional scalars are pointers so that an
// absent key keeps the default rather than zeroing it.
type fileConfig struct {
	Database     databaseConfig     `toml:"database"`
	Logging      loggingConfig      `toml:"logging"`
	AlphaVantage alphaVantageConfig `toml:"alphavantage"`
	Yahoo        yahooConfig        `toml:"yahoo"`
	Jobs         []jobConfig        `toml:"jobs,omitempty"`
}

type databaseConfig struct {
	Driver  string `toml:"driver,omitempty"`
	DSN     string `toml:"dsn,omitempty"`
	DataDir string `toml:"data_dir,omitempty"`
}

type loggingConfig struct {
	Level      string `toml:"level,omitempty"`
	Format     string `toml:"format,omitempty"`
	File       string `toml:"file,omitempty"`
	MaxSizeMB  *int   `toml:"max_size_mb,omitempty"`
	MaxBackups *int   `toml:"max_backups,omitempty"`
	MaxAgeDays *int   `toml:"max_age_days,omitempty"`
}

type alphaVantageConfig struct {
	APIKey  string `toml:"api_key,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
	Timeout string `toml:"timeout,omitempty"`
}

type yahooConfig struct {
	BufferDays *int `toml:"buffer_days,omitempty"`
}

type jobConfig struct {
	Name        string `toml:"name"`
	Description string `toml:"description,omitempty"`
	Kind        string `toml:"kind,omitempty"`
	Provider    string `toml:"provider,omitempty"`
	MasterTable string `toml:"master_table,omitempty"`
	TargetTable string `toml:"target_table,omitempty"`

	Filter  string   `toml:"filter,omitempty"`
	Symbols []string `toml:"symbols,omitempty"`

	LookbackDays *int  `toml:"lookback_days,omitempty"`
	BatchSize    *int  `toml:"batch_size,omitempty"`
	Overwrite    *bool `toml:"overwrite,omitempty"`

	PacingMode        string   `toml:"pacing_mode,omitempty"`
	PacingInterval    string   `toml:"pacing_interval,omitempty"`
	RequestsPerMinute *float64 `toml:"requests_per_minute,omitempty"`

	StartDate       string `toml:"start_date,omitempty"`
	EndDate         string `toml:"end_date,omitempty"`
	PreviousDayOnly *bool  `toml:"previous_day_only,omitempty"`

	ClearProcessFlag *bool  `toml:"clear_process_flag,omitempty"`
	FetchAttempts    *int   `toml:"fetch_attempts,omitempty"`
	RetryDelay       string `toml:"retry_delay,omitempty"`
}

// apply merges fc over settings. Jobs are matched by name; unknown names
// start from the shared job defaults.
func (fc fileConfig) apply(settings *domain.Settings) error {
	db := fc.Database
	setString((*string)(&settings.Database.Driver), db.Driver)
	setString(&settings.Database.DSN, db.DSN)
	setString(&settings.Database.DataDir, db.DataDir)

	lg := fc.Logging
	setString(&settings.Logging.Level, lg.Level)
	setString(&settings.Logging.Format, lg.Format)
	setString(&settings.Logging.File, lg.File)
	setInt(&settings.Logging.MaxSizeMB, lg.MaxSizeMB)
	setInt(&settings.Logging.MaxBackups, lg.MaxBackups)
	setInt(&settings.Logging.MaxAgeDays, lg.MaxAgeDays)

	av := fc.AlphaVantage
	setString(&settings.AlphaVantage.APIKey, av.APIKey)
	setString(&settings.AlphaVantage.BaseURL, av.BaseURL)
	if err := setDuration(&settings.AlphaVantage.Timeout, av.Timeout, "alphavantage.timeout"); err != nil {
		return err
	}

	setInt(&settings.Yahoo.BufferDays, fc.Yahoo.BufferDays)

	for _, jc := range fc.Jobs {
		if jc.Name == "" {
			return domain.ConfigErrorf("job without a name")
		}
		idx := -1
		for i := range settings.Jobs {
			if settings.Jobs[i].Name == jc.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			settings.Jobs = append(settings.Jobs, domain.DefaultJob(jc.Name, domain.ProviderKind(jc.Provider), jc.MasterTable, jc.TargetTable))
			idx = len(settings.Jobs) - 1
		}
		if err := jc.apply(&settings.Jobs[idx]); err != nil {
			return err
		}
	}
	return nil
}

func (jc jobConfig) apply(job *domain.JobSettings) error {
	setString(&job.Description, jc.Description)
	setString((*string)(&job.Kind), jc.Kind)
	setString((*string)(&job.Provider), jc.Provider)
	setString(&job.MasterTable, jc.MasterTable)
	setString(&job.TargetTable, jc.TargetTable)
	setString((*string)(&job.Filter), jc.Filter)
	if jc.Symbols != nil {
		job.Symbols = jc.Symbols
	}
	setInt(&job.LookbackDays, jc.LookbackDays)
	setInt(&job.BatchSize, jc.BatchSize)
	setBool(&job.Overwrite, jc.Overwrite)
	setString((*string)(&job.PacingMode), jc.PacingMode)
	if err := setDuration(&job.PacingInterval, jc.PacingInterval, "jobs."+jc.Name+".pacing_interval"); err != nil {
		return err
	}
	if jc.RequestsPerMinute != nil {
		job.RequestsPerMinute = *jc.RequestsPerMinute
	}
	setString(&job.StartDate, jc.StartDate)
	setString(&job.EndDate, jc.EndDate)
	setBool(&job.PreviousDayOnly, jc.PreviousDayOnly)
	setBool(&job.ClearProcessFlag, jc.ClearProcessFlag)
	setInt(&job.FetchAttempts, jc.FetchAttempts)
	return setDuration(&job.RetryDelay, jc.RetryDelay, "jobs."+jc.Name+".retry_delay")
}

// newFileConfig renders settings in file form, every key populated.
func newFileConfig(settings domain.Settings) fileConfig {
	fc := fileConfig{
		Database: databaseConfig{
			Driver:  string(settings.Database.Driver),
			DSN:     settings.Database.DSN,
			DataDir: settings.Database.DataDir,
		},
		Logging: loggingConfig{
			Level:      settings.Logging.Level,
			Format:     settings.Logging.Format,
			File:       settings.Logging.File,
			MaxSizeMB:  ptr(settings.Logging.MaxSizeMB),
			MaxBackups: ptr(settings.Logging.MaxBackups),
			MaxAgeDays: ptr(settings.Logging.MaxAgeDays),
		},
		AlphaVantage: alphaVantageConfig{
			APIKey:  settings.AlphaVantage.APIKey,
			BaseURL: settings.AlphaVantage.BaseURL,
			Timeout: settings.AlphaVantage.Timeout.String(),
		},
		Yahoo: yahooConfig{BufferDays: ptr(settings.Yahoo.BufferDays)},
	}
	for _, j := range settings.Jobs {
		jc := jobConfig{
			Name:             j.Name,
			Description:      j.Description,
			Kind:             string(j.Kind),
			Provider:         string(j.Provider),
			MasterTable:      j.MasterTable,
			TargetTable:      j.TargetTable,
			Filter:           string(j.Filter),
			Symbols:          j.Symbols,
			LookbackDays:     ptr(j.LookbackDays),
			BatchSize:        ptr(j.BatchSize),
			Overwrite:        ptr(j.Overwrite),
			PacingMode:       string(j.PacingMode),
			PacingInterval:   j.PacingInterval.String(),
			StartDate:        j.StartDate,
			EndDate:          j.EndDate,
			PreviousDayOnly:  ptr(j.PreviousDayOnly),
			ClearProcessFlag: ptr(j.ClearProcessFlag),
			FetchAttempts:    ptr(j.FetchAttempts),
			RetryDelay:       j.RetryDelay.String(),
		}
		if j.RequestsPerMinute > 0 {
			jc.RequestsPerMinute = ptr(j.RequestsPerMinute)
		}
		fc.Jobs = append(fc.Jobs, jc)
	}
	return fc
}

func ptr[T any](v T) *T {
	return &v
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v, key string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return domain.ConfigErrorf("%s: %v", key, err)
	}
	*dst = d
	return nil
}
