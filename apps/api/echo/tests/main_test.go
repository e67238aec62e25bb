package tests

import (
	"os"
	"testing"

	"github.com/trezcool/himig/core"
	"github.com/trezcool/himig/core/excuse"
	"github.com/trezcool/himig/core/user"
	testutil "github.com/trezcool/himig/tests"
)

func TestMain(m *testing.M) {
	// error payloads under test are the non-debug shape
	core.Conf.Debug = false
	core.Conf.TestMode = true

	core.InitValidators()
	user.InitValidators()
	excuse.InitValidators()
	core.ParseEmailTemplates(testutil.NewLogger())

	os.Exit(m.Run())
}
