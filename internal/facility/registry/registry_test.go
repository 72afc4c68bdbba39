package registry

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/followup/internal/facility/domain"
	"github.com/smallbiznis/followup/internal/facility/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(ctrl *gomock.Controller, facility string) *mocks.MockDriver {
	driver := mocks.NewMockDriver(ctrl)
	driver.EXPECT().Facility().Return(facility).AnyTimes()
	return driver
}

func TestResolveNormalizesKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	lco := newDriver(ctrl, "Las Cumbres")
	swift := newDriver(ctrl, "swift")

	reg, err := New(lco, swift)
	require.NoError(t, err)

	got, err := reg.Resolve("las-cumbres")
	require.NoError(t, err)
	assert.Same(t, lco, got)

	got, err = reg.Resolve("  SWIFT ")
	require.NoError(t, err)
	assert.Same(t, swift, got)

	assert.Equal(t, []string{"las-cumbres", "swift"}, reg.Facilities())
}

func TestResolveUnknownFacility(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)

	_, err = reg.Resolve("atlas")
	require.ErrorIs(t, err, domain.ErrUnknownFacility)

	var unknown *domain.UnknownFacilityError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "atlas", unknown.Facility)
	assert.False(t, reg.Exists("atlas"))
}

func TestNewRejectsDuplicateKeys(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := New(newDriver(ctrl, "Las Cumbres"), newDriver(ctrl, "las cumbres"))
	require.ErrorIs(t, err, domain.ErrDuplicateFacility)
}

func TestNewRejectsEmptyIdentifier(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := New(newDriver(ctrl, "  "))
	require.ErrorIs(t, err, domain.ErrInvalidFacility)
}
