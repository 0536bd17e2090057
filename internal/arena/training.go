package arena

import (
	"context"
	"fmt"

	"agent-arena/pkg/db"
	"agent-arena/pkg/models"
)

// ListPrograms returns every training program with its drills.
func (s *Service) ListPrograms(ctx context.Context) ([]models.Program, error) {
	return s.store.ListPrograms(ctx)
}

// GetProgram returns a program by slug.
func (s *Service) GetProgram(ctx context.Context, slug string) (*models.Program, error) {
	program, err := s.store.GetProgramBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, notFound("program")
	}
	return program, nil
}

// Enroll enrolls one of the user's agents in a program. Enrolling twice
// returns the existing enrollment.
func (s *Service) Enroll(ctx context.Context, userID string, req models.EnrollRequest) (*models.Enrollment, error) {
	if err := s.checkRate(ctx, ActionProgramEnroll, userID); err != nil {
		return nil, err
	}

	program, err := s.GetProgram(ctx, req.ProgramSlug)
	if err != nil {
		return nil, err
	}

	agent, err := s.store.GetAgent(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil || agent.UserID != userID {
		return nil, notFound("agent not found or unauthorized")
	}

	enrollment, err := s.store.CreateEnrollment(ctx, program.ID, agent.ID, userID)
	if err != nil {
		return nil, err
	}

	s.trainingLog.Info().
		Str("enrollment_id", enrollment.ID).
		Str("program", program.Slug).
		Str("agent_id", agent.ID).
		Msg("Agent enrolled")

	return enrollment, nil
}

// ListEnrollments returns the user's enrollments with their progress.
func (s *Service) ListEnrollments(ctx context.Context, userID string) ([]models.EnrollmentSummary, error) {
	return s.store.ListEnrollmentsByUser(ctx, userID)
}

// ownedEnrollment loads an enrollment owned by userID together with its program.
func (s *Service) ownedEnrollment(ctx context.Context, userID, enrollmentID string) (*models.Enrollment, *models.Program, error) {
	enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, nil, err
	}
	if enrollment == nil {
		return nil, nil, notFound("enrollment")
	}
	if enrollment.UserID != userID {
		return nil, nil, ErrUnauthorized
	}

	program, err := s.store.GetProgram(ctx, enrollment.ProgramID)
	if err != nil {
		return nil, nil, err
	}
	if program == nil {
		return nil, nil, fmt.Errorf("program %s of enrollment %s is missing", enrollment.ProgramID, enrollment.ID)
	}

	return enrollment, program, nil
}

// GetTrainingState reports the completed drills of an enrollment and the
// next drill to attempt.
func (s *Service) GetTrainingState(ctx context.Context, userID, enrollmentID string) (*models.TrainingState, error) {
	enrollment, program, err := s.ownedEnrollment(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}

	completedIDs, err := s.store.ListCompletedDrillIDs(ctx, enrollment.ID)
	if err != nil {
		return nil, err
	}
	completed := make(map[string]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}

	state := &models.TrainingState{
		Enrollment:        *enrollment,
		Program:           *program,
		CompletedDrillIDs: completedIDs,
		ProgressPercent:   db.ProgressPercent(len(completedIDs), len(program.Drills)),
	}

	// drills are ordered by order_index
	for i := range program.Drills {
		if !completed[program.Drills[i].ID] {
			drill := program.Drills[i]
			state.NextDrill = &drill
			break
		}
	}
	state.IsComplete = state.NextDrill == nil

	return state, nil
}

// StartDrill returns the prefilled battle submission for a drill. Drills
// already completed for the enrollment are rejected.
func (s *Service) StartDrill(ctx context.Context, userID, enrollmentID, drillID string) (*models.DrillPrefill, error) {
	if err := s.checkRate(ctx, ActionDrillStart, userID); err != nil {
		return nil, err
	}

	enrollment, program, err := s.ownedEnrollment(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}

	drill := findDrill(program, drillID)
	if drill == nil {
		return nil, notFound("drill not found in this program")
	}

	completedIDs, err := s.store.ListCompletedDrillIDs(ctx, enrollment.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range completedIDs {
		if id == drill.ID {
			return nil, ErrAlreadyCompleted
		}
	}

	s.trainingLog.Debug().
		Str("enrollment_id", enrollment.ID).
		Str("drill_id", drill.ID).
		Msg("Drill started")

	return &models.DrillPrefill{
		AgentID:       enrollment.AgentID,
		ChallengeType: program.ChallengeType,
		InputText:     drill.PresetInput,
		EnrollmentID:  enrollment.ID,
		DrillID:       drill.ID,
		DrillTitle:    drill.Title,
		ProgramSlug:   program.Slug,
	}, nil
}

// drillContext checks that a drill submission targets the user's own
// enrollment for agentID and a drill of its program.
func (s *Service) drillContext(ctx context.Context, userID, agentID, enrollmentID, drillID string) (*models.Program, error) {
	enrollment, program, err := s.ownedEnrollment(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.AgentID != agentID {
		return nil, invalidf("enrollment belongs to a different agent")
	}
	if findDrill(program, drillID) == nil {
		return nil, notFound("drill not found in this program")
	}
	return program, nil
}

func findDrill(program *models.Program, drillID string) *models.Drill {
	for i := range program.Drills {
		if program.Drills[i].ID == drillID {
			return &program.Drills[i]
		}
	}
	return nil
}
