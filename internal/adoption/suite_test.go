package adoption

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAdoption(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Adoption Suite")
}
