package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/models"
)

var (
	// ErrWorkspaceClosed is returned for commands sent to a stopped workspace.
	ErrWorkspaceClosed = errors.New("workspace closed")
	// ErrSubmitNotAllowed is returned when the submit gate is closed.
	ErrSubmitNotAllowed = errors.New("submission not allowed")
)

// Submit gate blockers, reported in snapshots.
const (
	BlockerNoChallenge      = "no_challenge_selected"
	BlockerCodeEmpty        = "code_required"
	BlockerExplanationShort = "explanation_too_short"
	BlockerLanguageMissing  = "language_required"
	BlockerChallengeFailed  = "challenge_failed"
	BlockerAlreadySubmitted = "already_submitted"
	BlockerSubmitting       = "submission_in_progress"
)

// BoardEntry is one challenge of the workspace list with its derived status.
type BoardEntry struct {
	Challenge       models.Challenge   `json:"challenge"`
	DifficultyLabel string             `json:"difficultyLabel"`
	Status          UIStatus           `json:"status"`
	Submission      *models.Submission `json:"submission,omitempty"`
}

// BuildBoard keeps the active challenges, annotates them with the current
// submission and sorts them by ascending difficulty, keeping input order on ties.
func BuildBoard(challenges []models.Challenge, submissions []models.Submission) []BoardEntry {
	latest := LatestByChallenge(submissions)

	board := make([]BoardEntry, 0, len(challenges))
	for _, challenge := range challenges {
		if !challenge.Active() {
			continue
		}
		entry := BoardEntry{
			Challenge:       challenge,
			DifficultyLabel: challenge.DifficultyLabel(),
		}
		if submission, ok := latest[challenge.ID]; ok {
			submission := submission
			entry.Submission = &submission
		}
		entry.Status = StatusOf(entry.Submission)
		board = append(board, entry)
	}

	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Challenge.Difficulty < board[j].Challenge.Difficulty
	})
	return board
}

// Draft is the editor content of the selected challenge.
type Draft struct {
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
	Language    string `json:"language"`
}

// WorkspaceSnapshot is the rendered state of a workspace.
type WorkspaceSnapshot struct {
	Version              uint64       `json:"version"`
	Challenges           []BoardEntry `json:"challenges"`
	SelectedIndex        int          `json:"selectedIndex"`
	Selected             *BoardEntry  `json:"selected,omitempty"`
	HasPrev              bool         `json:"hasPrev"`
	HasNext              bool         `json:"hasNext"`
	Draft                Draft        `json:"draft"`
	ExplanationLength    int          `json:"explanationLength"`
	ExplanationMinLength int          `json:"explanationMinLength"`
	ReadOnly             bool         `json:"readOnly"`
	CanSubmit            bool         `json:"canSubmit"`
	Blockers             []string     `json:"blockers"`
	Submitting           bool         `json:"submitting"`
	JustSubmitted        bool         `json:"justSubmitted"`
}

// WorkspaceOptions configures a workspace.
type WorkspaceOptions struct {
	ExplanationMinLength int
	DefaultLanguage      string
}

type commandKind int

const (
	cmdSnapshot commandKind = iota
	cmdSync
	cmdSyncSubmissions
	cmdSelect
	cmdPrev
	cmdNext
	cmdSkipUnsolved
	cmdEditCode
	cmdEditExplanation
	cmdSetLanguage
	cmdBeginSubmit
	cmdCompleteSubmit
)

type workspaceCommand struct {
	kind        commandKind
	index       int
	text        string
	challenges  []models.Challenge
	submissions []models.Submission
	challengeID string
	result      models.SubmitCodeResult
	err         error
	reply       chan workspaceReply
}

type workspaceReply struct {
	snapshot WorkspaceSnapshot
	payload  models.SubmitCodeInput
	err      error
}

type workspaceState struct {
	minExplanation  int
	defaultLanguage string

	challenges   []models.Challenge
	server       []models.Submission
	placeholders map[string]models.Submission
	board        []BoardEntry

	index         int
	renderedID    string
	draft         Draft
	submitting    bool
	justSubmitted bool
	version       uint64
}

// Workspace is the master-detail challenge state of one user. A single
// goroutine owns the state and applies commands in arrival order.
type Workspace struct {
	userID   string
	commands chan workspaceCommand
	done     chan struct{}
	logger   zerolog.Logger

	closeOnce sync.Once

	mu        sync.RWMutex
	listeners map[chan WorkspaceSnapshot]struct{}
	lastUsed  time.Time
}

// NewWorkspace starts the workspace loop for userID.
func NewWorkspace(userID string, opts WorkspaceOptions, logger zerolog.Logger) *Workspace {
	if opts.ExplanationMinLength <= 0 {
		opts.ExplanationMinLength = 50
	}
	if strings.TrimSpace(opts.DefaultLanguage) == "" {
		opts.DefaultLanguage = "Bicol"
	}

	w := &Workspace{
		userID:    userID,
		commands:  make(chan workspaceCommand),
		done:      make(chan struct{}),
		logger:    logger.With().Str("component", "workspace").Str("user_id", userID).Logger(),
		listeners: make(map[chan WorkspaceSnapshot]struct{}),
		lastUsed:  time.Now(),
	}

	state := &workspaceState{
		minExplanation:  opts.ExplanationMinLength,
		defaultLanguage: opts.DefaultLanguage,
		placeholders:    make(map[string]models.Submission),
		draft:           Draft{Language: opts.DefaultLanguage},
	}
	go w.loop(state)
	return w
}

// UserID returns the owner of the workspace.
func (w *Workspace) UserID() string {
	return w.userID
}

func (w *Workspace) loop(state *workspaceState) {
	for {
		select {
		case <-w.done:
			return
		case cmd := <-w.commands:
			reply := state.apply(cmd)
			if cmd.kind != cmdSnapshot {
				state.version++
			}
			reply.snapshot = state.snapshot()
			cmd.reply <- reply
			if cmd.kind != cmdSnapshot {
				w.notify(reply.snapshot)
			}
		}
	}
}

func (w *Workspace) send(ctx context.Context, cmd workspaceCommand) (workspaceReply, error) {
	cmd.reply = make(chan workspaceReply, 1)

	w.mu.Lock()
	w.lastUsed = time.Now()
	w.mu.Unlock()

	select {
	case <-w.done:
		return workspaceReply{}, ErrWorkspaceClosed
	case <-ctx.Done():
		return workspaceReply{}, ctx.Err()
	case w.commands <- cmd:
	}

	select {
	case reply := <-cmd.reply:
		return reply, reply.err
	case <-w.done:
		return workspaceReply{}, ErrWorkspaceClosed
	}
}

func (w *Workspace) snapshotOf(ctx context.Context, cmd workspaceCommand) (WorkspaceSnapshot, error) {
	reply, err := w.send(ctx, cmd)
	return reply.snapshot, err
}

// Snapshot returns the current state.
func (w *Workspace) Snapshot(ctx context.Context) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdSnapshot})
}

// Sync replaces the challenge list and the server-side submissions.
func (w *Workspace) Sync(ctx context.Context, challenges []models.Challenge, submissions []models.Submission) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdSync, challenges: challenges, submissions: submissions})
}

// SyncSubmissions replaces only the server-side submissions.
func (w *Workspace) SyncSubmissions(ctx context.Context, submissions []models.Submission) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdSyncSubmissions, submissions: submissions})
}

// Select moves the selection to index, clamped into range.
func (w *Workspace) Select(ctx context.Context, index int) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdSelect, index: index})
}

// Prev moves to the previous challenge, stopping at the first.
func (w *Workspace) Prev(ctx context.Context) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdPrev})
}

// Next moves to the next challenge, stopping at the last.
func (w *Workspace) Next(ctx context.Context) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdNext})
}

// SkipUnsolved jumps to the next challenge that is not completed.
func (w *Workspace) SkipUnsolved(ctx context.Context) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdSkipUnsolved})
}

// EditCode replaces the draft code.
func (w *Workspace) EditCode(ctx context.Context, code string) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdEditCode, text: code})
}

// EditExplanation replaces the draft explanation.
func (w *Workspace) EditExplanation(ctx context.Context, explanation string) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdEditExplanation, text: explanation})
}

// SetLanguage replaces the explanation language.
func (w *Workspace) SetLanguage(ctx context.Context, language string) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdSetLanguage, text: language})
}

// BeginSubmit checks the submit gate and, when open, marks the workspace as
// submitting and returns the payload to send upstream.
func (w *Workspace) BeginSubmit(ctx context.Context) (models.SubmitCodeInput, WorkspaceSnapshot, error) {
	reply, err := w.send(ctx, workspaceCommand{kind: cmdBeginSubmit})
	return reply.payload, reply.snapshot, err
}

// CompleteSubmit records the outcome of the upstream submit call.
func (w *Workspace) CompleteSubmit(ctx context.Context, challengeID string, result models.SubmitCodeResult, submitErr error) (WorkspaceSnapshot, error) {
	return w.snapshotOf(ctx, workspaceCommand{kind: cmdCompleteSubmit, challengeID: challengeID, result: result, err: submitErr})
}

// Subscribe returns a channel receiving every snapshot produced by a mutation.
func (w *Workspace) Subscribe() (<-chan WorkspaceSnapshot, func()) {
	ch := make(chan WorkspaceSnapshot, 8)
	w.mu.Lock()
	w.listeners[ch] = struct{}{}
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			if _, ok := w.listeners[ch]; ok {
				delete(w.listeners, ch)
				close(ch)
			}
			w.mu.Unlock()
		})
	}
}

func (w *Workspace) notify(snapshot WorkspaceSnapshot) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for ch := range w.listeners {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// IdleSince reports when the workspace last received a command.
func (w *Workspace) IdleSince() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastUsed
}

// Listeners returns the number of attached subscribers.
func (w *Workspace) Listeners() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.listeners)
}

// Close stops the loop. Pending and later commands fail with ErrWorkspaceClosed.
func (w *Workspace) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for ch := range w.listeners {
			delete(w.listeners, ch)
			close(ch)
		}
		w.mu.Unlock()
		w.logger.Debug().Msg("workspace closed")
	})
}

func (s *workspaceState) apply(cmd workspaceCommand) workspaceReply {
	var reply workspaceReply

	switch cmd.kind {
	case cmdSnapshot:
	case cmdSync:
		s.challenges = cmd.challenges
		s.server = cmd.submissions
		s.rebuild(true)
	case cmdSyncSubmissions:
		s.server = cmd.submissions
		s.rebuild(true)
	case cmdSelect:
		s.index = cmd.index
	case cmdPrev:
		s.index--
	case cmdNext:
		s.index++
	case cmdSkipUnsolved:
		s.index = s.nextUnsolved()
	case cmdEditCode:
		if !s.readOnly() {
			s.draft.Code = cmd.text
		}
	case cmdEditExplanation:
		if !s.readOnly() {
			s.draft.Explanation = cmd.text
		}
	case cmdSetLanguage:
		s.draft.Language = strings.TrimSpace(cmd.text)
	case cmdBeginSubmit:
		if blockers := s.blockers(); len(blockers) > 0 {
			reply.err = fmt.Errorf("%w: %s", ErrSubmitNotAllowed, strings.Join(blockers, ", "))
			break
		}
		selected := s.board[s.index]
		s.submitting = true
		reply.payload = models.SubmitCodeInput{
			ChallengeID:         selected.Challenge.ID,
			Code:                s.draft.Code,
			Explanation:         s.draft.Explanation,
			ExplanationLanguage: s.draft.Language,
		}
	case cmdCompleteSubmit:
		s.submitting = false
		if cmd.err == nil && cmd.challengeID != "" {
			s.placeholders[cmd.challengeID] = s.placeholder(cmd.challengeID, cmd.result)
			if selected, ok := s.selected(); ok && selected.Challenge.ID == cmd.challengeID {
				s.justSubmitted = true
			}
			s.rebuild(false)
		}
	}

	s.clamp()
	s.resetDraftOnSelectionChange()
	return reply
}

// rebuild recomputes the board from the challenges, the server submissions
// and the optimistic placeholders. Placeholders are dropped once the server
// reports a submission for their challenge.
func (s *workspaceState) rebuild(keepSelection bool) {
	reported := make(map[string]struct{}, len(s.server))
	for _, submission := range s.server {
		if id := submission.Challenge.ID(); id != "" {
			reported[id] = struct{}{}
		}
	}

	merged := make([]models.Submission, 0, len(s.server)+len(s.placeholders))
	merged = append(merged, s.server...)
	for challengeID, placeholder := range s.placeholders {
		if _, ok := reported[challengeID]; ok {
			delete(s.placeholders, challengeID)
			continue
		}
		merged = append(merged, placeholder)
	}

	s.board = BuildBoard(s.challenges, merged)

	if keepSelection && s.renderedID != "" {
		for i, entry := range s.board {
			if entry.Challenge.ID == s.renderedID {
				s.index = i
				return
			}
		}
	}
}

func (s *workspaceState) placeholder(challengeID string, result models.SubmitCodeResult) models.Submission {
	status := result.Status
	if status == "" {
		status = models.SubmissionStatusPending
	}
	return models.Submission{
		ID:                  result.ID,
		Challenge:           models.ChallengeRefID(challengeID),
		Code:                s.draft.Code,
		Explanation:         s.draft.Explanation,
		ExplanationLanguage: s.draft.Language,
		Status:              status,
		CreatedAt:           time.Now().UTC(),
	}
}

func (s *workspaceState) clamp() {
	if len(s.board) == 0 {
		s.index = 0
		return
	}
	if s.index < 0 {
		s.index = 0
	}
	if s.index > len(s.board)-1 {
		s.index = len(s.board) - 1
	}
}

func (s *workspaceState) nextUnsolved() int {
	for i := s.index + 1; i < len(s.board); i++ {
		if s.board[i].Status != UIStatusCompleted {
			return i
		}
	}
	return s.index + 1
}

func (s *workspaceState) selected() (BoardEntry, bool) {
	if len(s.board) == 0 || s.index < 0 || s.index >= len(s.board) {
		return BoardEntry{}, false
	}
	return s.board[s.index], true
}

func (s *workspaceState) resetDraftOnSelectionChange() {
	selectedID := ""
	starter := ""
	if selected, ok := s.selected(); ok {
		selectedID = selected.Challenge.ID
		starter = selected.Challenge.StarterCode
	}
	if selectedID == s.renderedID {
		return
	}
	s.renderedID = selectedID
	s.draft.Code = starter
	s.draft.Explanation = ""
	s.justSubmitted = false
}

func (s *workspaceState) readOnly() bool {
	selected, ok := s.selected()
	return ok && selected.Submission != nil
}

func (s *workspaceState) blockers() []string {
	blockers := make([]string, 0)
	selected, ok := s.selected()
	if !ok {
		return append(blockers, BlockerNoChallenge)
	}
	if strings.TrimSpace(s.draft.Code) == "" {
		blockers = append(blockers, BlockerCodeEmpty)
	}
	if utf8.RuneCountInString(s.draft.Explanation) < s.minExplanation {
		blockers = append(blockers, BlockerExplanationShort)
	}
	if strings.TrimSpace(s.draft.Language) == "" {
		blockers = append(blockers, BlockerLanguageMissing)
	}
	if selected.Status == UIStatusFailed {
		blockers = append(blockers, BlockerChallengeFailed)
	}
	if selected.Submission != nil || s.justSubmitted {
		blockers = append(blockers, BlockerAlreadySubmitted)
	}
	if s.submitting {
		blockers = append(blockers, BlockerSubmitting)
	}
	return blockers
}

func (s *workspaceState) snapshot() WorkspaceSnapshot {
	board := make([]BoardEntry, len(s.board))
	copy(board, s.board)

	snapshot := WorkspaceSnapshot{
		Version:              s.version,
		Challenges:           board,
		SelectedIndex:        s.index,
		Draft:                s.draft,
		ExplanationLength:    utf8.RuneCountInString(s.draft.Explanation),
		ExplanationMinLength: s.minExplanation,
		ReadOnly:             s.readOnly(),
		Submitting:           s.submitting,
		JustSubmitted:        s.justSubmitted,
		Blockers:             s.blockers(),
	}
	if selected, ok := s.selected(); ok {
		snapshot.Selected = &selected
		snapshot.HasPrev = s.index > 0
		snapshot.HasNext = s.index < len(s.board)-1
	}
	snapshot.CanSubmit = len(snapshot.Blockers) == 0
	return snapshot
}
