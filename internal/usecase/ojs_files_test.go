package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/journal-portal/backend/internal/domain"
	"github.com/journal-portal/backend/pkg/ojs"
)

func TestClassifyDocument(t *testing.T) {
	tests := []struct {
		name  string
		stage int
		mime  string
		file  string
		want  domain.DocumentType
	}{
		{"submission", ojs.FileStageSubmission, "application/pdf", "a.pdf", domain.DocumentManuscript},
		{"note", ojs.FileStageNote, "application/pdf", "a.pdf", domain.DocumentManuscript},
		{"review file", ojs.FileStageReviewFile, "application/pdf", "a.pdf", domain.DocumentReviewerResponse},
		{"review attachment", ojs.FileStageReviewAttach, "application/pdf", "a.pdf", domain.DocumentRevisedManuscript},
		{"copyedit", ojs.FileStageCopyedit, "application/pdf", "a.pdf", domain.DocumentRevisedManuscript},
		{"proof", ojs.FileStageProofCopyedited, "application/pdf", "a.pdf", domain.DocumentFinalVersion},
		{"review revision", ojs.FileStageReviewRevision, "text/csv", "a.csv", domain.DocumentSupplementary},
		{"unmapped stage", ojs.FileStageProductionReady, "application/pdf", "a.pdf", domain.DocumentManuscript},
		{"msword beats final", ojs.FileStageProofCopyedited, "application/msword", "a.pdf", domain.DocumentManuscript},
		{"docx mime", ojs.FileStageReviewRevision, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "x", domain.DocumentManuscript},
		{"docx by name", ojs.FileStageReviewFile, "", "Response.DOCX", domain.DocumentManuscript},
		{"doc by name", ojs.FileStageCopyedit, "application/octet-stream", "v2.doc", domain.DocumentManuscript},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDocument(tt.stage, tt.mime, tt.file))
		})
	}
}
