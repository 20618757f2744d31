package flags

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/chatlens/chatlens/pkg/analysis"
	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/query"
	"github.com/chatlens/chatlens/pkg/pipeline"
)

// AnalysisFlags configure the keyword lexicon and batch processing.
type AnalysisFlags struct {
	LexiconFile     string
	TopicsFromDB    bool
	BatchLimit      int
	ProcessInterval time.Duration
}

func NewAnalysisFlags() *AnalysisFlags {
	return &AnalysisFlags{BatchLimit: pipeline.DefaultBatchLimit}
}

func (f *AnalysisFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.LexiconFile, "lexicon-file", "", "YAML file with sentiment keywords and topics, built-in Thai/English tables when empty")
	fs.BoolVar(&f.TopicsFromDB, "topics-from-db", false, "Use the active rows of the topics table instead of the lexicon topics")
	fs.IntVar(&f.BatchLimit, "batch-limit", f.BatchLimit, "Maximum number of messages processed per batch")
	fs.DurationVar(&f.ProcessInterval, "process-interval", 0, "Process unprocessed messages on this interval, disabled when 0")
}

func (f *AnalysisFlags) Validate() error {
	if f.BatchLimit < 0 {
		return errors.New("--batch-limit must not be negative")
	}
	if f.ProcessInterval < 0 {
		return errors.New("--process-interval must not be negative")
	}
	return nil
}

// GetLexicon loads the lexicon. With --topics-from-db, dbc must be set.
func (f *AnalysisFlags) GetLexicon(ctx context.Context, dbc *db.DB) (*analysis.Lexicon, error) {
	lexicon := analysis.DefaultLexicon()
	if f.LexiconFile != "" {
		var err error
		if lexicon, err = analysis.LoadLexicon(f.LexiconFile); err != nil {
			return nil, errors.WithMessage(err, "could not load lexicon")
		}
	}

	if f.TopicsFromDB {
		if dbc == nil {
			return nil, errors.New("--topics-from-db needs a database")
		}
		rows, err := query.ActiveTopics(ctx, dbc)
		if err != nil {
			return nil, errors.WithMessage(err, "could not load topics")
		}
		topics := make([]analysis.Topic, 0, len(rows))
		for _, row := range rows {
			topics = append(topics, analysis.Topic{Name: row.Name, Keywords: row.Keywords})
		}
		if len(topics) == 0 {
			log.Warning("topics table has no active rows, keeping lexicon topics")
		} else {
			lexicon.Topics = topics
			if err := lexicon.Validate(); err != nil {
				return nil, errors.WithMessage(err, "invalid topics table")
			}
		}
	}
	return lexicon, nil
}
