package fit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epbkit/linefit/revise"
	"github.com/epbkit/linefit/revise/mock"
)

const shortText = "Led 12 Airmen through UCI prep"

// blockingReviser answers only after release is closed.
func blockingReviser(release <-chan struct{}, out ...string) revise.Reviser {
	return revise.Func(func(ctx context.Context, req revise.Request) ([]string, error) {
		select {
		case <-release:
			return out, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func TestRequestRevisionAndApply(t *testing.T) {
	m := mock.New(mock.Options{Candidates: []string{"Led 12 Amn", "Led a dozen Amn"}})
	s := New("narrative", Budget{CharLimit: 250, Lines: 2, LineWidth: formWidth}, Options{Reviser: m, Model: "test-model"})
	require.NoError(t, s.SetText(shortText))
	gen := s.Generation()

	rev, err := s.RequestRevision(context.Background(), revise.Range{Start: 0, End: 13}, revise.ModeCompress, "keep the number")
	require.NoError(t, err)
	assert.Equal(t, []string{"Led 12 Amn", "Led a dozen Amn"}, rev.Candidates)
	assert.Equal(t, shortText, s.Text(), "requesting must not touch the draft")
	assert.False(t, s.IsRevising())

	req, ok := m.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "Led 12 Airmen", req.Selection)
	assert.Equal(t, revise.ModeCompress, req.Mode)
	assert.Equal(t, "keep the number", req.Instruction)
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, gen, req.Generation)
	assert.Equal(t, 233, req.MaxChars)

	require.NoError(t, s.ApplyCandidate(rev, rev.Candidates[0]))
	assert.Equal(t, "Led 12 Amn through UCI prep", s.Text())
	assert.Equal(t, gen+1, s.Generation())
	assert.Equal(t, Ready, s.State())

	// the same revision cannot be applied twice
	assert.ErrorIs(t, s.ApplyCandidate(rev, "again"), ErrStaleRevision)
}

func TestRevisionFailureLeavesDraftUntouched(t *testing.T) {
	transport := errors.New("connection reset by peer")
	s := New("narrative", Budget{CharLimit: 250, Lines: 2, LineWidth: formWidth}, Options{
		Reviser: mock.New(mock.Options{Err: transport}),
	})
	require.NoError(t, s.SetText(shortText))
	before := s.Report()

	rev, err := s.RequestRevision(context.Background(), revise.Range{Start: 4, End: 13}, revise.ModeGeneral, "")
	assert.Nil(t, rev)
	assert.ErrorIs(t, err, revise.ErrRevisionFailed)
	assert.ErrorIs(t, err, transport)
	assert.False(t, s.IsRevising())

	after := s.Report()
	assert.Equal(t, before.Text, after.Text)
	assert.Equal(t, before.Generation, after.Generation)
	assert.Equal(t, before.State, after.State)

	// the slot keeps working
	rev, err = s.RequestRevision(context.Background(), revise.Range{Start: 4, End: 13}, revise.ModeGeneral, "")
	assert.Error(t, err)
	assert.Nil(t, rev)
}

func TestRevisionPanicIsRecovered(t *testing.T) {
	s := New("narrative", Budget{}, Options{Reviser: mock.New(mock.Options{Panic: true})})
	require.NoError(t, s.SetText(shortText))
	res := <-s.RequestRevisionAsync(context.Background(), revise.Range{Start: 0, End: 3}, revise.ModeExpand, "")
	assert.ErrorIs(t, res.Err, revise.ErrRevisionFailed)
	assert.Nil(t, res.Revision)
	assert.False(t, s.IsRevising())
	assert.Equal(t, shortText, s.Text())
}

func TestSecondRevisionIsRejectedWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	s := New("narrative", Budget{}, Options{Reviser: blockingReviser(release, "Led 12 Amn")})
	require.NoError(t, s.SetText(shortText))

	ch := s.RequestRevisionAsync(context.Background(), revise.Range{Start: 0, End: 13}, revise.ModeCompress, "")
	assert.True(t, s.IsRevising())
	assert.True(t, s.Report().Revising)

	_, err := s.RequestRevision(context.Background(), revise.Range{Start: 0, End: 3}, revise.ModeCompress, "")
	assert.ErrorIs(t, err, ErrRevisionInFlight)
	second := <-s.RequestRevisionAsync(context.Background(), revise.Range{Start: 0, End: 3}, revise.ModeCompress, "")
	assert.ErrorIs(t, second.Err, ErrRevisionInFlight)

	close(release)
	res := <-ch
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"Led 12 Amn"}, res.Revision.Candidates)
	assert.False(t, s.IsRevising())
	_, open := <-ch
	assert.False(t, open)
}

func TestEditDuringRevisionDiscardsResponse(t *testing.T) {
	release := make(chan struct{})
	s := New("narrative", Budget{}, Options{Reviser: blockingReviser(release, "x")})
	require.NoError(t, s.SetText(shortText))

	ch := s.RequestRevisionAsync(context.Background(), revise.Range{Start: 0, End: 3}, revise.ModeGeneral, "")
	require.NoError(t, s.SetText(shortText+" for the wing"))
	close(release)

	res := <-ch
	assert.ErrorIs(t, res.Err, ErrStaleRevision)
	assert.Nil(t, res.Revision)
	assert.False(t, s.IsRevising())
	assert.Equal(t, shortText+" for the wing", s.Text())
}

func TestApplyAfterEditIsStale(t *testing.T) {
	s := New("narrative", Budget{}, Options{Reviser: mock.New(mock.Options{})})
	require.NoError(t, s.SetText(shortText))
	rev, err := s.RequestRevision(context.Background(), revise.Range{Start: 14, End: 21}, revise.ModeCompress, "")
	require.NoError(t, err)
	assert.Equal(t, "thru", rev.Candidates[0])

	require.NoError(t, s.SetText(shortText+"."))
	assert.ErrorIs(t, s.ApplyCandidate(rev, rev.Candidates[0]), ErrStaleRevision)
	assert.Equal(t, shortText+".", s.Text())
}

func TestCloseDuringRevisionDiscardsResponse(t *testing.T) {
	release := make(chan struct{})
	s := New("narrative", Budget{}, Options{Reviser: blockingReviser(release, "x")})
	require.NoError(t, s.SetText(shortText))

	ch := s.RequestRevisionAsync(context.Background(), revise.Range{Start: 0, End: 3}, revise.ModeGeneral, "")
	s.Close()
	close(release)
	assert.ErrorIs(t, (<-ch).Err, ErrStaleRevision)

	_, err := s.RequestRevision(context.Background(), revise.Range{Start: 0, End: 3}, revise.ModeGeneral, "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCancelledRevisionReportsFailure(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s := New("narrative", Budget{}, Options{Reviser: blockingReviser(release)})
	require.NoError(t, s.SetText(shortText))

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.RequestRevisionAsync(ctx, revise.Range{Start: 0, End: 3}, revise.ModeGeneral, "")
	cancel()
	res := <-ch
	assert.ErrorIs(t, res.Err, revise.ErrRevisionFailed)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.False(t, s.IsRevising())
}

func TestEmptyCandidateListIsAFailure(t *testing.T) {
	release := make(chan struct{})
	close(release)
	s := New("narrative", Budget{}, Options{Reviser: blockingReviser(release)})
	require.NoError(t, s.SetText(shortText))
	_, err := s.RequestRevision(context.Background(), revise.Range{Start: 0, End: 3}, revise.ModeGeneral, "")
	assert.ErrorIs(t, err, revise.ErrRevisionFailed)
	assert.ErrorIs(t, err, revise.ErrResponseInvalid)
}

func TestRevisionRequestValidation(t *testing.T) {
	s := New("narrative", Budget{}, Options{})
	require.NoError(t, s.SetText(shortText))
	_, err := s.RequestRevision(context.Background(), revise.Range{Start: 0, End: 3}, revise.ModeGeneral, "")
	assert.ErrorIs(t, err, ErrNoReviser)

	s = New("narrative", Budget{}, Options{Reviser: mock.New(mock.Options{})})
	require.NoError(t, s.SetText(shortText))
	_, err = s.RequestRevision(context.Background(), revise.Range{Start: 10, End: 99}, revise.ModeGeneral, "")
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.False(t, s.IsRevising())

	_, err = s.RequestRevision(context.Background(), revise.Range{Start: 0, End: 3}, revise.Mode("bogus"), "")
	assert.ErrorIs(t, err, revise.ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrInvalidRange)
	assert.False(t, s.IsRevising())

	assert.ErrorIs(t, s.ApplyCandidate(nil, "x"), ErrInvalidRange)
}
