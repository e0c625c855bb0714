// Package report persists search results as JSON artifacts: an incremental
// snapshot during the run and the final best-trial, per-trial, and
// parameter-importance files. Output is deterministic: identical study
// state always produces byte-identical files.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/thalesfsp/tabtune/internal/search"
	"github.com/thalesfsp/tabtune/internal/train"
)

//////
// Const, vars, types.
//////

// Artifact file names, relative to the results directory.
const (
	IntermediateFile    = "intermediate_results.json"
	BestParamsFile      = "best_params.json"
	BestDetailedFile    = "best_detailed_results.json"
	AllTrialsFile       = "all_trials_detailed.json"
	ParamImportanceFile = "param_importance.json"
)

// importanceMinTrials is the trial count above which parameter importances
// are computed and persisted.
const importanceMinTrials = 10

// Writer writes search artifacts into a results directory.
type Writer struct {
	dir string
	log *zap.SugaredLogger
}

//////
// Factory.
//////

// New creates a Writer, creating the results directory if needed.
func New(dir string, log *zap.SugaredLogger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating results directory %s", dir)
	}

	return &Writer{dir: dir, log: log}, nil
}

//////
// Methods.
//////

// Dir returns the results directory.
func (w *Writer) Dir() string { return w.dir }

// SnapshotCallback returns a driver callback that overwrites the
// intermediate-results artifact after every trial whose number is a
// multiple of every. Write failures are logged, never fatal: a snapshot is
// best-effort and the next one overwrites it anyway.
func (w *Writer) SnapshotCallback(every int) search.Callback {
	return func(study *search.Study, trial *search.Trial) {
		if every <= 0 || trial.Number%every != 0 {
			return
		}

		if err := w.WriteSnapshot(study); err != nil {
			w.log.Errorw("writing snapshot", "trial", trial.Number, "error", err)
		}
	}
}

// WriteSnapshot overwrites the intermediate-results artifact with one entry
// per trial that has an objective value: trial number, value, the flattened
// hyperparameters, and the detail record's fields merged in when present.
func (w *Writer) WriteSnapshot(study *search.Study) error {
	entries := make([]map[string]any, 0, len(study.Trials()))

	for _, t := range study.Trials() {
		value, ok := t.Value()
		if !ok {
			continue
		}

		entry := map[string]any{
			"trial_number": t.Number,
			"value":        value,
		}

		for name, v := range t.Params() {
			entry[name] = v
		}

		if attr, ok := t.UserAttr(train.DetailKey); ok {
			detail, err := toMap(attr)
			if err != nil {
				return errors.Wrapf(err, "flattening detail of trial %d", t.Number)
			}

			for k, v := range detail {
				entry[k] = v
			}
		}

		entries = append(entries, entry)
	}

	return w.writeJSON(IntermediateFile, entries)
}

// WriteFinal writes the end-of-run artifacts: the best trial's parameters
// and detail record, the full per-trial dump, and (when more than
// importanceMinTrials trials ran) the parameter importances.
//
// With no completed trial (e.g. an interrupt before the first one finished)
// the best-trial artifacts are skipped and no error is returned.
func (w *Writer) WriteFinal(study *search.Study) error {
	best, ok := study.BestTrial()
	if !ok {
		w.log.Warnw("no completed trials, skipping best-trial artifacts")
	} else {
		if err := w.writeJSON(BestParamsFile, best.Params()); err != nil {
			return err
		}

		if attr, ok := best.UserAttr(train.DetailKey); ok {
			if err := w.writeJSON(BestDetailedFile, attr); err != nil {
				return err
			}
		}
	}

	allTrials := make([]map[string]any, 0, len(study.Trials()))

	for _, t := range study.Trials() {
		value, ok := t.Value()
		if !ok {
			continue
		}

		entry := map[string]any{
			"trial_number": t.Number,
			"value":        value,
			"params":       t.Params(),
			"state":        t.State().String(),
		}

		if attr, ok := t.UserAttr(train.DetailKey); ok {
			entry["detailed_results"] = attr
		}

		allTrials = append(allTrials, entry)
	}

	if err := w.writeJSON(AllTrialsFile, allTrials); err != nil {
		return err
	}

	if len(study.Trials()) > importanceMinTrials {
		importances, err := search.ParamImportances(study)
		if err != nil {
			// Possible when nearly every trial pruned or failed.
			w.log.Warnw("skipping parameter importances", "error", err)

			return nil
		}

		if err := w.writeJSON(ParamImportanceFile, importances); err != nil {
			return err
		}
	}

	return nil
}

// writeJSON marshals v with two-space indentation and writes it to name
// inside the results directory. Map keys are emitted sorted, so rewriting
// identical state is byte-identical.
func (w *Writer) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshaling %s", name)
	}

	path := filepath.Join(w.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	return nil
}

//////
// Helpers.
//////

// toMap converts an arbitrary value to a generic map through its JSON
// representation, so struct fields can be merged into artifact entries.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}
