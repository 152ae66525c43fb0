package expense_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fepa-project/expense-ocr/constants"
	"github.com/fepa-project/expense-ocr/internal/expense"
)

var _ = Describe("Parse", func() {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	Context("with a Vietnamese cafe receipt", func() {
		text := "Tổng: 120.000đ\nQuán Cafe XYZ\n15/03/2024"

		It("extracts the labeled total with separators stripped", func() {
			data := expense.Parse(text, 88, now)
			Expect(data.Amount).To(Equal(120000.0))
		})

		It("takes the first non-blank line as description", func() {
			data := expense.Parse(text, 88, now)
			Expect(data.Description).To(Equal("Tổng: 120.000đ"))
		})

		It("reads the date day-first", func() {
			data := expense.Parse(text, 88, now)
			Expect(data.SpentAt).To(Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
		})

		It("categorises via the keyword table", func() {
			data := expense.Parse(text, 88, now)
			Expect(data.Category).To(Equal(constants.Food))
		})

		It("carries the confidence through", func() {
			data := expense.Parse(text, 88, now)
			Expect(data.Confidence).To(Equal(88.0))
		})
	})

	Context("with text carrying no recognizable tokens", func() {
		It("falls back on every field", func() {
			data := expense.Parse("\n\n   \n", 10, now)
			Expect(data.Amount).To(BeZero())
			Expect(data.Description).To(Equal(expense.FallbackDescription))
			Expect(data.SpentAt).To(Equal(now))
			Expect(data.Category).To(BeEmpty())
		})
	})

	Context("amount rule ordering", func() {
		It("prefers a labeled total over a bare currency amount", func() {
			data := expense.Parse("Coffee 45.000đ\nTotal: 52.000", 50, now)
			Expect(data.Amount).To(Equal(52000.0))
		})

		It("falls through to the currency rule when no label matches", func() {
			data := expense.Parse("Latte 45.000đ", 50, now)
			Expect(data.Amount).To(Equal(45000.0))
		})

		It("handles comma thousand separators", func() {
			data := expense.Parse("Amount: 1,250,000 VND", 50, now)
			Expect(data.Amount).To(Equal(1250000.0))
		})
	})

	Context("date handling", func() {
		It("accepts dash separators", func() {
			data := expense.Parse("5-9-2023", 50, now)
			Expect(data.SpentAt).To(Equal(time.Date(2023, 9, 5, 0, 0, 0, 0, time.UTC)))
		})

		It("accepts two-digit years", func() {
			data := expense.Parse("05/09/23", 50, now)
			Expect(data.SpentAt).To(Equal(time.Date(2023, 9, 5, 0, 0, 0, 0, time.UTC)))
		})

		It("ignores an unparseable date token", func() {
			data := expense.Parse("99/99/2024", 50, now)
			Expect(data.SpentAt).To(Equal(now))
		})
	})

	Context("category detection", func() {
		It("matches English keywords case-insensitively", func() {
			data := expense.Parse("GRAB ride downtown", 50, now)
			Expect(data.Category).To(Equal(constants.Transport))
		})

		It("resolves keyword ties by table order", func() {
			data := expense.Parse("taxi to the restaurant", 50, now)
			Expect(data.Category).To(Equal(constants.Food))
		})
	})

	It("is deterministic for a fixed input and clock", func() {
		text := "Tổng: 120.000đ\nQuán Cafe XYZ\n15/03/2024"
		first := expense.Parse(text, 88, now)
		for i := 0; i < 5; i++ {
			Expect(expense.Parse(text, 88, now)).To(Equal(first))
		}
	})
})

var _ = Describe("BuildResult", func() {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	It("produces a payload that round-trips with the wire field names", func() {
		data := expense.Parse("Tổng: 120.000đ\nQuán Cafe XYZ\n15/03/2024", 88, now)
		raw, err := expense.BuildResult("raw text", 88, data)
		Expect(err).NotTo(HaveOccurred())

		var res expense.Result
		Expect(json.Unmarshal(raw, &res)).To(Succeed())
		Expect(res.RawText).To(Equal("raw text"))
		Expect(res.Confidence).To(Equal(88.0))
		Expect(res.ExpenseData.Amount).To(Equal(120000.0))
		Expect(res.ExpenseData.SpentAt).To(Equal("2024-03-15T00:00:00Z"))
		Expect(res.ExpenseData.Category).To(Equal("food"))
	})

	It("omits the category key when detection found nothing", func() {
		data := expense.Parse("nothing to see", 10, now)
		raw, err := expense.BuildResult("nothing to see", 10, data)
		Expect(err).NotTo(HaveOccurred())

		var m map[string]any
		Expect(json.Unmarshal(raw, &m)).To(Succeed())
		ed := m["expenseData"].(map[string]any)
		Expect(ed).NotTo(HaveKey("category"))
	})
})
