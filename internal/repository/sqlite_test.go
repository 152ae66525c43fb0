package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fepa-project/expense-ocr/constants"
	"github.com/fepa-project/expense-ocr/internal/common"
	"github.com/fepa-project/expense-ocr/internal/entity"
	"github.com/fepa-project/expense-ocr/internal/repository"
)

var _ = Describe("SQLite job store", func() {
	var (
		ctx  context.Context
		db   *sql.DB
		repo repository.JobRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = repository.OpenSQLite(filepath.Join(GinkgoT().TempDir(), "jobs.db"), slog.Default())
		Expect(err).NotTo(HaveOccurred())
		repo = repository.NewSQLiteJobRepository(db, slog.Default())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	newQueued := func(userID string) *entity.Job {
		job := entity.NewJob(userID, "https://cdn.example.com/r.png")
		Expect(repo.Create(ctx, job)).To(Succeed())
		return job
	}

	Describe("Create and GetByID", func() {
		It("round-trips a queued job", func() {
			job := newQueued("user-1")

			got, err := repo.GetByID(ctx, job.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(job.ID))
			Expect(got.UserID).To(Equal("user-1"))
			Expect(got.FileURL).To(Equal(job.FileURL))
			Expect(got.Status).To(Equal(constants.JobStatusQueued))
			Expect(got.ResultJSON).To(BeNil())
			Expect(got.ErrorMessage).To(BeNil())
			Expect(got.CompletedAt).To(BeNil())
			Expect(got.CreatedAt).To(BeTemporally("~", job.CreatedAt, time.Millisecond))
		})

		It("reports a missing job", func() {
			_, err := repo.GetByID(ctx, entity.NewJob("u", "https://x").ID)
			Expect(err).To(MatchError(common.ErrNotFound))
		})
	})

	Describe("MarkProcessing", func() {
		It("claims a queued job exactly once", func() {
			job := newQueued("user-1")

			Expect(repo.MarkProcessing(ctx, job.ID)).To(Succeed())
			Expect(repo.MarkProcessing(ctx, job.ID)).To(MatchError(common.ErrTerminal))

			got, err := repo.GetByID(ctx, job.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(constants.JobStatusProcessing))
			Expect(got.CompletedAt).To(BeNil())
		})

		It("refuses a finished job", func() {
			job := newQueued("user-1")
			Expect(repo.FinishFailure(ctx, job.ID, "boom")).To(Succeed())

			Expect(repo.MarkProcessing(ctx, job.ID)).To(MatchError(common.ErrTerminal))

			got, err := repo.GetByID(ctx, job.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(constants.JobStatusFailed))
		})
	})

	Describe("FinishSuccess", func() {
		It("stores the result and stamps completion", func() {
			job := newQueued("user-1")
			Expect(repo.MarkProcessing(ctx, job.ID)).To(Succeed())

			payload := []byte(`{"rawText":"x","confidence":80,"expenseData":{"amount":1,"description":"x","spentAt":"2024-03-15T00:00:00Z","confidence":80}}`)
			Expect(repo.FinishSuccess(ctx, job.ID, payload)).To(Succeed())

			got, err := repo.GetByID(ctx, job.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(constants.JobStatusCompleted))
			Expect(string(got.ResultJSON)).To(Equal(string(payload)))
			Expect(got.ErrorMessage).To(BeNil())
			Expect(got.CompletedAt).NotTo(BeNil())
		})
	})

	Describe("FinishFailure", func() {
		It("records the message and stamps completion", func() {
			job := newQueued("user-1")
			Expect(repo.MarkProcessing(ctx, job.ID)).To(Succeed())
			Expect(repo.FinishFailure(ctx, job.ID, "FETCH_FAILED: image download failed")).To(Succeed())

			got, err := repo.GetByID(ctx, job.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(constants.JobStatusFailed))
			Expect(*got.ErrorMessage).To(ContainSubstring("FETCH_FAILED"))
			Expect(got.CompletedAt).NotTo(BeNil())
		})

		It("overwrites a completed row", func() {
			job := newQueued("user-1")
			Expect(repo.MarkProcessing(ctx, job.ID)).To(Succeed())
			Expect(repo.FinishSuccess(ctx, job.ID, []byte(`{}`))).To(Succeed())
			Expect(repo.FinishFailure(ctx, job.ID, "event publish failed")).To(Succeed())

			got, err := repo.GetByID(ctx, job.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(constants.JobStatusFailed))
			Expect(*got.ErrorMessage).To(Equal("event publish failed"))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 25; i++ {
				job := entity.NewJob("owner", fmt.Sprintf("https://cdn.example.com/r%02d.png", i))
				job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				Expect(repo.Create(ctx, job)).To(Succeed())
			}
			Expect(repo.Create(ctx, entity.NewJob("other", "https://cdn.example.com/x.png"))).To(Succeed())
		})

		It("pages newest-first", func() {
			jobs, total, err := repo.List(ctx, repository.ListFilter{UserID: "owner", Page: 2, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(25))
			Expect(jobs).To(HaveLen(10))
			Expect(jobs[0].FileURL).To(Equal("https://cdn.example.com/r14.png"))
			Expect(jobs[9].FileURL).To(Equal("https://cdn.example.com/r05.png"))
		})

		It("returns the remainder on the last page", func() {
			jobs, total, err := repo.List(ctx, repository.ListFilter{UserID: "owner", Page: 3, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(25))
			Expect(jobs).To(HaveLen(5))
		})

		It("returns nothing past the end", func() {
			jobs, total, err := repo.List(ctx, repository.ListFilter{UserID: "owner", Page: 9, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(25))
			Expect(jobs).To(BeEmpty())
		})

		It("scopes to the owner", func() {
			jobs, total, err := repo.List(ctx, repository.ListFilter{UserID: "other", Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(1))
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].UserID).To(Equal("other"))
		})

		It("filters by status", func() {
			jobs, _, err := repo.List(ctx, repository.ListFilter{UserID: "owner", Page: 1, Limit: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.MarkProcessing(ctx, jobs[0].ID)).To(Succeed())
			Expect(repo.FinishFailure(ctx, jobs[0].ID, "boom")).To(Succeed())

			failed := constants.JobStatusFailed
			got, total, err := repo.List(ctx, repository.ListFilter{UserID: "owner", Status: &failed, Page: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(1))
			Expect(got).To(HaveLen(1))
			Expect(got[0].ID).To(Equal(jobs[0].ID))
		})

		It("normalizes out-of-range paging inputs", func() {
			jobs, total, err := repo.List(ctx, repository.ListFilter{UserID: "owner", Page: 0, Limit: 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(25))
			Expect(jobs).To(HaveLen(10))
			Expect(jobs[0].FileURL).To(Equal("https://cdn.example.com/r24.png"))
		})
	})
})
