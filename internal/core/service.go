package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/hobo/internal/config"
	"github.com/JonMunkholm/hobo/internal/header"
	"github.com/JonMunkholm/hobo/internal/logging"
	"github.com/JonMunkholm/hobo/internal/metrics"
	"github.com/JonMunkholm/hobo/internal/qc"
	"github.com/JonMunkholm/hobo/internal/store"
	"github.com/JonMunkholm/hobo/internal/table"
)

// ErrStorageDisabled is returned by storage operations when no database is
// configured.
var ErrStorageDisabled = errors.New("storage not configured")

// Repository stores parsed tables. *store.Store implements it.
type Repository interface {
	SaveTable(ctx context.Context, nf store.NewFile, t *table.Table) (store.File, error)
	ListFiles(ctx context.Context, limit, offset int) ([]store.File, error)
	GetFile(ctx context.Context, id uuid.UUID) (store.File, error)
	LoadTable(ctx context.Context, id uuid.UUID) (store.File, *table.Table, error)
	DeleteFile(ctx context.Context, id uuid.UUID) error
}

// ParseOptions selects the optional stages of one parse. Callers fill the
// defaults from config.ParseConfig and config.QCConfig.
type ParseOptions struct {
	QC     bool
	Store  bool
	Strict bool
}

// ParseResult is everything one parse produced.
type ParseResult struct {
	ParseID     string                    `json:"parse_id"`
	FileName    string                    `json:"file_name"`
	Identity    header.InstrumentIdentity `json:"identity"`
	Headers     []string                  `json:"headers"`
	Mapping     header.ChannelMapping     `json:"-"`
	HeaderLines int                       `json:"header_lines"`
	Bytes       int64                     `json:"bytes"`
	Table       *table.Table              `json:"-"`
	QC          *qc.Report                `json:"qc,omitempty"`
	Stored      *store.File               `json:"stored,omitempty"`
	Duration    time.Duration             `json:"duration_ns"`
}

// Service runs parses and fronts the repository.
type Service struct {
	repo    Repository
	cfg     *config.Config
	limiter *ParseLimiter
	qcOpts  qc.Options
	loc     *time.Location
}

// NewService builds a Service from cfg. repo may be nil, which disables
// storage.
func NewService(repo Repository, cfg *config.Config) (*Service, error) {
	loc, err := time.LoadLocation(cfg.Parse.Timezone)
	if err != nil {
		return nil, fmt.Errorf("parse timezone: %w", err)
	}
	qcOpts, err := QCOptions(cfg.QC)
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:    repo,
		cfg:     cfg,
		limiter: NewParseLimiter(cfg.Parse.MaxConcurrent, cfg.Parse.MaxWaitTime),
		qcOpts:  qcOpts,
		loc:     loc,
	}, nil
}

// QCOptions builds the QC chain options from configuration. Range
// variables that are set replace the default bounds for their channel.
func QCOptions(c config.QCConfig) (qc.Options, error) {
	opts := qc.DefaultOptions()
	opts.FlatWindow = c.FlatWindow
	opts.SpikeWindow = c.SpikeWindow
	if c.SpikeThreshold > 0 {
		opts.SpikeThreshold = c.SpikeThreshold
	}

	ranges := make(map[header.ChannelSlot]qc.Bounds, len(opts.Ranges))
	for slot, b := range opts.Ranges {
		ranges[slot] = b
	}
	for slot, s := range map[header.ChannelSlot]string{
		header.Temperature:      c.RangeTemperature,
		header.Pressure:         c.RangePressure,
		header.RelativeHumidity: c.RangeRelativeHumidity,
		header.Battery:          c.RangeBattery,
	} {
		lo, hi, ok, err := config.ParseRange(s)
		if err != nil {
			return qc.Options{}, fmt.Errorf("qc range for %s: %w", slot, err)
		}
		if ok {
			ranges[slot] = qc.Bounds{Min: lo, Max: hi}
		}
	}
	opts.Ranges = ranges
	return opts, nil
}

// StorageEnabled reports whether a repository is configured.
func (s *Service) StorageEnabled() bool {
	return s.repo != nil
}

// LimiterStatus returns the parse limiter state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForParses blocks until in-flight parses finish or ctx ends.
func (s *Service) WaitForParses(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Parse reads one logger export from r and returns its normalized table.
// size is the declared input size for logging, or -1 if unknown.
func (s *Service) Parse(ctx context.Context, name string, r io.Reader, size int64, opts ParseOptions) (*ParseResult, error) {
	timer := metrics.NewTimer()

	if opts.Store && s.repo == nil {
		metrics.RecordParse(metrics.StatusRejected, timer.Duration())
		return nil, ErrStorageDisabled
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		metrics.RecordParse(metrics.StatusRejected, timer.Duration())
		return nil, err
	}
	defer s.limiter.Release()

	if s.cfg.Parse.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Parse.Timeout)
		defer cancel()
	}

	res := &ParseResult{ParseID: uuid.NewString(), FileName: name}
	log := logging.ForParse(ctx, res.ParseID, name)
	log.Debug("parse started", "size", size, "qc", opts.QC, "store", opts.Store)

	err := s.parse(ctx, r, opts, res)
	res.Duration = timer.Duration()
	if err != nil {
		metrics.RecordParse(metrics.StatusFailed, res.Duration)
		msg := MapError(err)
		log.Warn("parse failed", "error", err, "code", msg.Code, "bytes", res.Bytes)
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	metrics.RecordParse(metrics.StatusOK, res.Duration)
	channels := make([]string, 0, len(res.Table.Columns))
	for _, c := range res.Table.Columns {
		channels = append(channels, c.Slot.String())
	}
	metrics.RecordTable(res.Table.Len(), res.Bytes, res.HeaderLines, channels)

	attrs := []any{
		"header_lines", res.HeaderLines,
		"serial", res.Identity.SerialNumber,
		"channels", channels,
		"rows", res.Table.Len(),
		"bytes", res.Bytes,
		"duration", res.Duration,
	}
	if res.QC != nil {
		attrs = append(attrs, "qc_bad", res.QC.Bad())
	}
	if res.Stored != nil {
		attrs = append(attrs, "file_id", res.Stored.ID)
	}
	log.Info("parse completed", attrs...)
	return res, nil
}

func (s *Service) parse(ctx context.Context, r io.Reader, opts ParseOptions, res *ParseResult) error {
	decoded, counter, err := WrapForStreaming(r, s.cfg.Parse.Encoding, s.cfg.Parse.MaxFileSize)
	if err != nil {
		return err
	}
	defer func() { res.Bytes = counter.BytesRead() }()

	log := logging.ForParse(ctx, res.ParseID, res.FileName)
	br := bufio.NewReader(decoded)
	hdr, err := header.Scan(br, header.Options{
		MapOptions: header.MapOptions{
			Strict: opts.Strict,
			Logger: log,
		},
		MaxLines: s.cfg.Parse.MaxHeaderLines,
	})
	if err != nil {
		var nf *header.HeaderNotFoundError
		if errors.As(err, &nf) && nf.LinesRead == 0 {
			return ErrEmptyFile
		}
		return err
	}
	res.Identity = hdr.Identity
	if !hdr.Identity.HasSerial() {
		log.Warn("no logger serial number in header", "header_lines", hdr.LinesRead)
	}
	res.Headers = hdr.Headers
	res.Mapping = hdr.Mapping
	res.HeaderLines = hdr.LinesRead

	t, err := table.Assemble(ctx, table.NewRowReader(br), hdr.Mapping, hdr.Identity, table.Options{
		Location:  s.loc,
		DayFirst:  s.cfg.Parse.DayFirst,
		FirstLine: hdr.LinesRead + 1,
	})
	if err != nil {
		return err
	}
	res.Table = t

	if opts.QC {
		report := qc.Run(t, s.qcOpts)
		res.QC = &report
		for _, c := range report.Columns {
			for flag, n := range c.Flagged {
				metrics.RecordQCFlag(c.Slot, strconv.Itoa(flag), n)
			}
		}
	}

	if opts.Store {
		ip, ua := ClientFromContext(ctx)
		f, err := s.repo.SaveTable(ctx, store.NewFile{
			FileName:     res.FileName,
			TitleKey:     hdr.Identity.TitleKey,
			TitleValue:   hdr.Identity.TitleValue,
			SerialNumber: hdr.Identity.SerialNumber,
			HeaderLines:  hdr.LinesRead,
			QCApplied:    opts.QC,
			SourceIP:     ip,
			UserAgent:    ua,
		}, t)
		if err != nil {
			return fmt.Errorf("store table: %w", err)
		}
		res.Stored = &f
	}
	return nil
}

// ListFiles returns stored files, newest first.
func (s *Service) ListFiles(ctx context.Context, limit, offset int) ([]store.File, error) {
	if s.repo == nil {
		return nil, ErrStorageDisabled
	}
	return s.repo.ListFiles(ctx, limit, offset)
}

// GetFile returns one stored file summary.
func (s *Service) GetFile(ctx context.Context, id uuid.UUID) (store.File, error) {
	if s.repo == nil {
		return store.File{}, ErrStorageDisabled
	}
	return s.repo.GetFile(ctx, id)
}

// LoadTable returns a stored file with its table.
func (s *Service) LoadTable(ctx context.Context, id uuid.UUID) (store.File, *table.Table, error) {
	if s.repo == nil {
		return store.File{}, nil, ErrStorageDisabled
	}
	return s.repo.LoadTable(ctx, id)
}

// DeleteFile removes a stored file.
func (s *Service) DeleteFile(ctx context.Context, id uuid.UUID) error {
	if s.repo == nil {
		return ErrStorageDisabled
	}
	if err := s.repo.DeleteFile(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("file deleted", "file_id", id)
	return nil
}
