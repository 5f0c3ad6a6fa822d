package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/journal-portal/backend/internal/domain"
	"github.com/journal-portal/backend/pkg/ojs"
)

var stageDocumentTypes = map[int]domain.DocumentType{
	ojs.FileStageSubmission:      domain.DocumentManuscript,
	ojs.FileStageNote:            domain.DocumentManuscript,
	ojs.FileStageReviewFile:      domain.DocumentReviewerResponse,
	ojs.FileStageReviewAttach:    domain.DocumentRevisedManuscript,
	ojs.FileStageCopyedit:        domain.DocumentRevisedManuscript,
	ojs.FileStageProofCopyedited: domain.DocumentFinalVersion,
	ojs.FileStageReviewRevision:  domain.DocumentSupplementary,
}

var wordMimeTypes = map[string]bool{
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// ClassifyDocument derives the local document type from the OJS file
// stage. Word documents are always manuscripts.
func ClassifyDocument(fileStage int, mimeType, fileName string) domain.DocumentType {
	if isWordDocument(mimeType, fileName) {
		return domain.DocumentManuscript
	}
	if t, ok := stageDocumentTypes[fileStage]; ok {
		return t
	}
	return domain.DocumentManuscript
}

func isWordDocument(mimeType, fileName string) bool {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	if wordMimeTypes[mt] {
		return true
	}
	name := strings.ToLower(fileName)
	return strings.HasSuffix(name, ".doc") || strings.HasSuffix(name, ".docx")
}

type fileCounts struct {
	imported int
	skipped  int
}

// importFiles downloads every remote file not yet present locally. Files are
// never replaced; a failed download only bumps the skipped count.
func (u *ImportUsecase) importFiles(ctx context.Context, client OJSClient, repos domain.Repositories, sub *domain.Submission, remote *ojs.Submission, res *itemResult) error {
	locale := client.Locale()
	log := u.logger.With("submission_id", sub.ID, "ojs_submission_id", remote.ID)

	files, err := client.ListSubmissionFiles(ctx, remote.ID)
	if err != nil {
		log.Info("files endpoint unavailable, using galleys", "error", err)
	}
	if err != nil || len(files) == 0 {
		files = client.GalleyFiles(remote)
	}

	var (
		creator  uuid.UUID
		resolved bool
	)
	for i := range files {
		f := &files[i]
		name := f.FileName(locale)

		exists, err := repos.Documents.ExistsByFileName(ctx, sub.ID, name)
		if err != nil {
			return fmt.Errorf("check document %s: %w", name, err)
		}
		if exists {
			res.files.skipped++
			continue
		}

		if !resolved {
			creator, err = resolveCreator(ctx, repos, sub)
			if err != nil {
				return err
			}
			resolved = true
		}
		if creator == uuid.Nil {
			log.Warn("no profile to own imported file, skipping", "file", name)
			res.files.skipped++
			continue
		}

		data, strategy, ok := client.DownloadFile(ctx, remote, f)
		if !ok {
			res.files.skipped++
			continue
		}

		mimeType := f.MimeType
		if mimeType == "" {
			mimeType = mimetype.Detect(data).String()
		}
		rel, err := u.files.Save(sub.ID, name, data)
		if err != nil {
			return fmt.Errorf("store file %s: %w", name, err)
		}
		res.written = append(res.written, rel)

		doc := &domain.Document{
			SubmissionID: sub.ID,
			Title:        name,
			DocumentType: ClassifyDocument(f.FileStage, mimeType, name),
			FileName:     name,
			FilePath:     rel,
			FileSize:     int64(len(data)),
			MimeType:     mimeType,
			CreatedByID:  creator,
		}
		if err := repos.Documents.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document %s: %w", name, err)
		}
		res.files.imported++
		log.Debug("imported file", "file", name, "strategy", strategy, "type", doc.DocumentType, "bytes", len(data))
	}
	return nil
}

// resolveCreator picks the profile that owns imported documents: the
// corresponding author, then the first contributor, then any superuser.
// It returns uuid.Nil when none exists.
func resolveCreator(ctx context.Context, repos domain.Repositories, sub *domain.Submission) (uuid.UUID, error) {
	if sub.CorrespondingAuthorID != nil {
		return *sub.CorrespondingAuthorID, nil
	}
	contribs, err := repos.Contributions.ListBySubmission(ctx, sub.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list contributors: %w", err)
	}
	if len(contribs) > 0 {
		return contribs[0].ProfileID, nil
	}
	p, err := repos.Profiles.FirstSuperuserProfile(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("find superuser profile: %w", err)
	}
	if p == nil {
		return uuid.Nil, nil
	}
	return p.ID, nil
}
