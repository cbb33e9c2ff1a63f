package selection

import (
	"time"

	"github.com/google/uuid"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

type taskTemplate struct {
	title       string
	description string
}

// taskTemplates is the fixed, ordered application checklist generated once per
// locked university.
var taskTemplates = []taskTemplate{
	{"Review admission requirements", "Check program prerequisites, deadlines and minimum test scores."},
	{"Draft statement of purpose", "Write a program-specific SOP and get feedback on it."},
	{"Request letters of recommendation", "Ask two or three referees and share the submission links."},
	{"Collect transcripts and test reports", "Order official transcripts and send language and secondary test scores."},
	{"Submit application", "Fill in the online form, attach documents and submit before the deadline."},
	{"Pay application fee", "Pay the fee and keep the receipt."},
	{"Track application status", "Watch the applicant portal for interview invites and decisions."},
}

type documentTemplate struct {
	name     string
	required bool
}

// documentTemplates is the fixed, ordered document checklist.
var documentTemplates = []documentTemplate{
	{"Passport", true},
	{"Academic transcripts", true},
	{"Statement of purpose", true},
	{"Letters of recommendation", true},
	{"Language test score report", true},
	{"CV / resume", false},
	{"Proof of funds", true},
}

// TaskTemplateCount is the number of tasks generated per locked university.
func TaskTemplateCount() int { return len(taskTemplates) }

// DocumentTemplateCount is the number of documents in the checklist.
func DocumentTemplateCount() int { return len(documentTemplates) }

// NewTaskChecklist builds the ordered task rows for a pair.
func NewTaskChecklist(userID shared.UserID, universityID shared.UniversityID, now time.Time) []Task {
	tasks := make([]Task, 0, len(taskTemplates))
	for i, t := range taskTemplates {
		tasks = append(tasks, Task{
			ID:           uuid.NewString(),
			UserID:       userID,
			UniversityID: universityID,
			Position:     i + 1,
			Title:        t.title,
			Description:  t.description,
			Status:       TaskPending,
			CreatedAt:    now,
		})
	}
	return tasks
}

// NewDocumentChecklist builds the ordered document rows for a pair.
func NewDocumentChecklist(userID shared.UserID, universityID shared.UniversityID, now time.Time) []Document {
	docs := make([]Document, 0, len(documentTemplates))
	for i, d := range documentTemplates {
		docs = append(docs, Document{
			ID:           uuid.NewString(),
			UserID:       userID,
			UniversityID: universityID,
			Position:     i + 1,
			Name:         d.name,
			Required:     d.required,
			Status:       DocumentMissing,
			CreatedAt:    now,
		})
	}
	return docs
}
