package dialogue

import (
	"context"
	"fmt"

	"github.com/medassist/medassist/internal/domain"
	"github.com/medassist/medassist/internal/extract"
)

type transitionKey struct {
	step  domain.Step
	input input
}

// handler runs one transition. It mutates t.session and returns the reply.
// On error the machine restores the session as it was before the handler
// ran and still sends the returned reply.
type handler func(ctx context.Context, t *turn) (string, error)

func (m *Machine) buildTransitions() map[transitionKey]handler {
	table := map[transitionKey]handler{
		{domain.StepIdle, inputReminder}: m.startReminder,
		{domain.StepIdle, inputTopic}:    m.answerTopic,
		{domain.StepIdle, inputOther}:    m.welcome,
		{domain.StepIdle, inputBlank}:    m.welcome,

		{domain.StepAwaitingMedicationName, inputReminder}: m.receiveName,
		{domain.StepAwaitingMedicationName, inputTopic}:    m.receiveName,
		{domain.StepAwaitingMedicationName, inputOther}:    m.receiveName,
		{domain.StepAwaitingMedicationName, inputBlank}:    m.clarify,

		{domain.StepAwaitingTime, inputReminder}: m.receiveTime,
		{domain.StepAwaitingTime, inputTopic}:    m.receiveTime,
		{domain.StepAwaitingTime, inputOther}:    m.receiveTime,
		{domain.StepAwaitingTime, inputBlank}:    m.clarify,
	}
	for _, step := range []domain.Step{domain.StepIdle, domain.StepAwaitingMedicationName, domain.StepAwaitingTime} {
		table[transitionKey{step, inputViewAll}] = m.summary
		table[transitionKey{step, inputConfirm}] = m.confirm
	}
	return table
}

// checkSession verifies that step and context agree.
func checkSession(s *domain.Session) error {
	switch {
	case !s.Step.Valid():
		return fmt.Errorf("%w: unknown step %d", ErrSessionInconsistent, s.Step)
	case s.Step == domain.StepIdle && s.Context.AwaitingMedicationName:
		return fmt.Errorf("%w: idle session awaiting a medication name", ErrSessionInconsistent)
	case s.Step == domain.StepAwaitingMedicationName && !s.Context.AwaitingMedicationName:
		return fmt.Errorf("%w: awaiting name without flag", ErrSessionInconsistent)
	case s.Step == domain.StepAwaitingTime && !extract.ValidMedicationName(s.Context.MedicationName):
		return fmt.Errorf("%w: awaiting time without a valid medication name", ErrSessionInconsistent)
	}
	return nil
}

func (m *Machine) summary(ctx context.Context, t *turn) (string, error) {
	reminders, err := m.reminders.ListReminders(ctx, t.userID)
	if err != nil {
		return summaryFailedReply, fmt.Errorf("list reminders: %w", err)
	}
	t.session.Reset()
	m.observer.ObserveSessionReset(ResetSummary)
	return summaryReply(reminders), nil
}

func (m *Machine) confirm(_ context.Context, t *turn) (string, error) {
	sc := &t.session.Context
	sc.AwaitingReminderConfirmation = false
	sc.AwaitingMedicationName = true
	sc.MedicationName = ""
	t.session.Step = domain.StepAwaitingMedicationName
	return confirmReply(sc.CurrentDisease), nil
}

func (m *Machine) welcome(_ context.Context, t *turn) (string, error) {
	t.session.Reset()
	m.observer.ObserveSessionReset(ResetWelcome)
	return welcomeReply, nil
}

func (m *Machine) clarify(_ context.Context, t *turn) (string, error) {
	if t.session.Step == domain.StepAwaitingTime {
		return expectTimeReply, nil
	}
	return expectNameReply, nil
}

func (m *Machine) answerTopic(ctx context.Context, t *turn) (string, error) {
	topic := topicFrom(t.message)
	if topic == "" {
		return emptyTopicReply, nil
	}

	sc := &t.session.Context
	if m.classifier.IsDisease(topic) {
		res := m.retriever.DiseaseInfo(ctx, topic)
		if res.CanonicalKey != "" {
			sc.CurrentDisease = res.CanonicalKey
			sc.AwaitingReminderConfirmation = true
		} else {
			sc.AwaitingReminderConfirmation = false
		}
		return res.Body, nil
	}

	res := m.retriever.MedicationInfo(ctx, topic)
	sc.CurrentMedication = topic
	sc.CurrentDisease = ""
	sc.AwaitingReminderConfirmation = false
	return res.Body, nil
}

func (m *Machine) startReminder(ctx context.Context, t *turn) (string, error) {
	sc := &t.session.Context
	sc.AwaitingReminderConfirmation = false

	e := extract.Extract(t.message, domain.StepIdle)
	switch {
	case !e.HasCandidate():
		m.awaitName(t)
		return askMedicationReply, nil
	case !extract.ValidMedicationName(e.Candidate):
		m.awaitName(t)
		return invalidNameReply(e.Candidate, true), nil
	case e.HasTime():
		return m.completeReminder(ctx, t, e.Candidate, e.Time)
	default:
		m.awaitTime(t, e.Candidate)
		return askTimeReply(e.Candidate), nil
	}
}

func (m *Machine) receiveName(ctx context.Context, t *turn) (string, error) {
	e := extract.Extract(t.message, domain.StepAwaitingMedicationName)
	// A full "remind me to take X" sentence names the medication itself.
	if idle := extract.Extract(t.message, domain.StepIdle); idle.HasCandidate() {
		e = idle
	}

	if !extract.ValidMedicationName(e.Candidate) {
		m.awaitName(t)
		return invalidNameReply(e.Candidate, false), nil
	}
	if e.HasTime() {
		return m.completeReminder(ctx, t, e.Candidate, e.Time)
	}
	m.awaitTime(t, e.Candidate)
	return askTimeReply(e.Candidate), nil
}

func (m *Machine) receiveTime(ctx context.Context, t *turn) (string, error) {
	e := extract.Extract(t.message, domain.StepAwaitingTime)
	if !e.HasTime() {
		return badTimeReply, nil
	}
	return m.completeReminder(ctx, t, t.session.Context.MedicationName, e.Time)
}

func (m *Machine) awaitName(t *turn) {
	t.session.Step = domain.StepAwaitingMedicationName
	t.session.Context.AwaitingMedicationName = true
	t.session.Context.MedicationName = ""
}

func (m *Machine) awaitTime(t *turn, name string) {
	t.session.Step = domain.StepAwaitingTime
	t.session.Context.AwaitingMedicationName = false
	t.session.Context.MedicationName = name
}

// completeReminder persists the reminder and resets the session. The
// reminder is linked to the condition the user last asked about.
func (m *Machine) completeReminder(ctx context.Context, t *turn, name, at string) (string, error) {
	now := m.now()
	r := &domain.Reminder{
		UserID:    t.userID,
		Name:      name,
		Time:      at,
		Info:      m.retriever.MedicationInfo(ctx, name).Body,
		Condition: t.session.Context.CurrentDisease,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.reminders.UpsertReminder(ctx, r); err != nil {
		return saveFailedReply, fmt.Errorf("save reminder: %w", err)
	}

	m.logger.Info("reminder saved", "user_id", t.userID, "medication", name, "time", at, "condition", r.Condition)
	m.observer.ObserveReminderSaved()
	t.session.Reset()
	m.observer.ObserveSessionReset(ResetCompleted)
	return reminderSetReply(name, at), nil
}
