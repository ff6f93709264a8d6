package service

import (
	"context"

	"github.com/noah-isme/praxis-api/internal/logbook"
	"github.com/noah-isme/praxis-api/internal/models"
	"github.com/noah-isme/praxis-api/internal/repository"
)

// participantsOf resolves the owner and accepted supervisors of a trainee.
func participantsOf(ctx context.Context, trainees repository.TraineeRepository, trainee models.Trainee) (logbook.Participants, error) {
	assignments, err := trainees.AcceptedSupervisors(ctx, trainee.ID)
	if err != nil {
		return logbook.Participants{}, err
	}

	participants := logbook.Participants{OwnerUserID: trainee.UserID}
	for _, assignment := range assignments {
		participants.Supervisors = append(participants.Supervisors, assignment.SupervisorID)
	}
	return participants, nil
}

// canView reports whether actor may read a trainee's records. Admins see
// everything; trainees see their own; supervisors see trainees whose
// assignment they accepted.
func canView(actor logbook.Actor, p logbook.Participants) bool {
	switch actor.Role {
	case logbook.RoleAdmin:
		return true
	case logbook.RoleTrainee:
		return p.IsOwner(actor)
	case logbook.RoleSupervisor:
		for _, id := range p.Supervisors {
			if id == actor.ID {
				return true
			}
		}
	}
	return false
}
