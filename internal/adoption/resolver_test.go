package adoption

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/utils/pointer"

	"github.com/meili-operator/meilisearch-operator/internal/meiliclient"
)

var _ = Describe("Resolve", func() {
	var remote []meiliclient.Key

	BeforeEach(func() {
		remote = []meiliclient.Key{
			{
				UID:         "uid-search",
				Key:         "value-search",
				Name:        pointer.String("search-key"),
				Description: pointer.String("search only"),
				Actions:     []string{"search"},
				Indexes:     []string{"movies"},
			},
			{
				UID:     "uid-admin",
				Key:     "value-admin",
				Name:    pointer.String("movies-admin"),
				Actions: []string{"*"},
				Indexes: []string{"movies"},
			},
		}
	})

	Context("when a remote key matches every field", func() {
		It("adopts it exactly", func() {
			result := Resolve(Desired{
				Name:        pointer.String("search-key"),
				Description: pointer.String("search only"),
				Actions:     []string{"search"},
				Indexes:     []string{"movies"},
			}, remote)

			Expect(result.Outcome).To(Equal(AdoptedExact))
			Expect(result.Key.UID).To(Equal("uid-search"))
		})
	})

	Context("when only the functional fields match", func() {
		It("adopts it relaxed", func() {
			// A key created by hand before the operator took over: same
			// scope, different cosmetics.
			result := Resolve(Desired{
				Name:        pointer.String("legacy-search"),
				Description: pointer.String("imported"),
				Actions:     []string{"search"},
				Indexes:     []string{"movies"},
			}, remote)

			Expect(result.Outcome).To(Equal(AdoptedRelaxed))
			Expect(result.Key.UID).To(Equal("uid-search"))
		})

		It("matches actions and indexes regardless of order", func() {
			remote[0].Actions = []string{"documents.add", "search"}
			remote[0].Indexes = []string{"movies", "series"}

			result := Resolve(Desired{
				Actions: []string{"search", "documents.add"},
				Indexes: []string{"series", "movies"},
			}, remote)

			Expect(result.Outcome).To(Equal(AdoptedExact))
		})
	})

	Context("when both an exact and a relaxed candidate exist", func() {
		It("prefers the exact match", func() {
			remote = append(remote, meiliclient.Key{
				UID:     "uid-twin",
				Key:     "value-twin",
				Name:    pointer.String("other-name"),
				Actions: []string{"search"},
				Indexes: []string{"movies"},
			})

			result := Resolve(Desired{
				Name:        pointer.String("search-key"),
				Description: pointer.String("search only"),
				Actions:     []string{"search"},
				Indexes:     []string{"movies"},
			}, remote)

			Expect(result.Outcome).To(Equal(AdoptedExact))
			Expect(result.Key.UID).To(Equal("uid-search"))
		})
	})

	Context("when nothing matches", func() {
		It("returns NotFound", func() {
			result := Resolve(Desired{
				Actions: []string{"documents.delete"},
				Indexes: []string{"movies"},
			}, remote)

			Expect(result.Outcome).To(Equal(NotFound))
			Expect(result.Key).To(BeNil())
		})
	})

	Context("expiry comparison", func() {
		BeforeEach(func() {
			remote[0].ExpiresAt = pointer.String("2030-01-01T00:00:00Z")
		})

		It("compares timestamps as instants", func() {
			result := Resolve(Desired{
				Actions:   []string{"search"},
				Indexes:   []string{"movies"},
				ExpiresAt: pointer.String("2030-01-01T01:00:00+01:00"),
			}, remote)

			Expect(result.Outcome).To(Equal(AdoptedRelaxed))
		})

		It("treats a nil desired expiry as a wildcard", func() {
			result := Resolve(Desired{
				Actions: []string{"search"},
				Indexes: []string{"movies"},
			}, remote)

			Expect(result.Outcome).To(Equal(AdoptedRelaxed))
		})

		It("rejects a key without expiry when one is desired", func() {
			result := Resolve(Desired{
				Actions:   []string{"*"},
				Indexes:   []string{"movies"},
				ExpiresAt: pointer.String("2030-01-01T00:00:00Z"),
			}, remote)

			Expect(result.Outcome).To(Equal(NotFound))
		})
	})
})
