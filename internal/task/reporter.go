package task

import "sync"

type updateKind int

const (
	updateProgress updateKind = iota
	updateLog
)

type update struct {
	kind      updateKind
	percent   int
	stage     string
	stageText string
	message   string
}

// Reporter is the sending end of a running job's progress channel. The
// queue drains it on its own goroutine, so Report and Log never touch queue
// state directly. Calls made after the job has settled are dropped.
// A nil Reporter discards everything.
type Reporter struct {
	jobID   string
	updates chan update
	stop    chan struct{}
	closed  chan struct{}
	once    sync.Once
}

func newReporter(jobID string, buffer int) *Reporter {
	if buffer <= 0 {
		buffer = 1
	}
	return &Reporter{
		jobID:   jobID,
		updates: make(chan update, buffer),
		stop:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

// JobID returns the ID of the job this reporter belongs to.
func (r *Reporter) JobID() string {
	if r == nil {
		return ""
	}
	return r.jobID
}

// Report records the job's current percent and stage. Values are accepted
// as given, including percentages lower than the previous report.
func (r *Reporter) Report(percent int, stage, stageText string) {
	r.send(update{kind: updateProgress, percent: percent, stage: stage, stageText: stageText})
}

// Log forwards a free-form message to the job's session stream.
func (r *Reporter) Log(message string) {
	r.send(update{kind: updateLog, message: message})
}

func (r *Reporter) send(u update) {
	if r == nil {
		return
	}

	select {
	case <-r.closed:
		return
	default:
	}

	select {
	case r.updates <- u:
	case <-r.closed:
	}
}

// finish tells the pump that the job function has returned.
func (r *Reporter) finish() {
	r.once.Do(func() { close(r.stop) })
}

// drain delivers updates to apply until finish is called, then applies
// whatever is still buffered and closes the reporter.
func (r *Reporter) drain(apply func(update)) {
	defer close(r.closed)

	for {
		select {
		case u := <-r.updates:
			apply(u)
		case <-r.stop:
			for {
				select {
				case u := <-r.updates:
					apply(u)
				default:
					return
				}
			}
		}
	}
}
