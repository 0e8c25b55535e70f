package supervisync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func validForm(tempID string) FormUpload {
	return FormUpload{
		TempID:             tempID,
		HealthFacilityName: "Bharatpur HP",
		Province:           "Bagmati",
		District:           "Chitwan",
		Visits: []VisitUpload{
			{VisitNumber: 1, VisitDate: "2026-03-15"},
		},
	}
}

func TestValidateUploadRequest_Valid(t *testing.T) {
	req := &UploadRequest{
		DeviceID: "device-1",
		Forms:    []FormUpload{validForm("tmp-1")},
	}
	require.NoError(t, validateUploadRequest(req))
}

func TestValidateUploadRequest_MissingDeviceID(t *testing.T) {
	req := &UploadRequest{
		Forms: []FormUpload{validForm("tmp-1")},
	}
	err := validateUploadRequest(req)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBadRequest)

	var reqErr *RequestValidationError
	require.True(t, errors.As(err, &reqErr))
	require.Contains(t, reqErr.Fields, "deviceId")
}

func TestValidateUploadRequest_EmptyForms(t *testing.T) {
	req := &UploadRequest{DeviceID: "device-1"}
	err := validateUploadRequest(req)
	require.ErrorIs(t, err, ErrBadRequest)

	var reqErr *RequestValidationError
	require.True(t, errors.As(err, &reqErr))
	require.Contains(t, reqErr.Fields, "forms")
}

func TestValidateUploadRequest_MissingTempID(t *testing.T) {
	form := validForm("")
	req := &UploadRequest{
		DeviceID: "device-1",
		Forms:    []FormUpload{validForm("tmp-1"), form},
	}
	err := validateUploadRequest(req)
	require.ErrorIs(t, err, ErrBadRequest)

	var reqErr *RequestValidationError
	require.True(t, errors.As(err, &reqErr))
	require.Contains(t, reqErr.Fields, "forms[1].tempId")
	require.NotContains(t, reqErr.Fields, "forms[0].tempId")
}

func TestValidateFormUpload_Valid(t *testing.T) {
	form := validForm("tmp-1")
	require.NoError(t, validateFormUpload(&form))
}

func TestValidateFormUpload_MissingFacilityFields(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(f *FormUpload)
	}{
		{"facility name", func(f *FormUpload) { f.HealthFacilityName = "" }},
		{"province", func(f *FormUpload) { f.Province = " " }},
		{"district", func(f *FormUpload) { f.District = "" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm("tmp-1")
			tc.mutate(&form)
			err := validateFormUpload(&form)
			require.ErrorIs(t, err, ErrFormValidation)
		})
	}
}

func TestValidateFormUpload_VisitNumberOutOfRange(t *testing.T) {
	for _, n := range []int{0, -1, 5, 42} {
		form := validForm("tmp-1")
		form.Visits[0].VisitNumber = n
		err := validateFormUpload(&form)
		require.ErrorIs(t, err, ErrFormValidation, "visitNumber %d should be rejected", n)
	}
}

func TestValidateFormUpload_DuplicateVisitNumber(t *testing.T) {
	form := validForm("tmp-1")
	form.Visits = append(form.Visits, VisitUpload{VisitNumber: 1})
	err := validateFormUpload(&form)
	require.ErrorIs(t, err, ErrDuplicateVisit)
}

func TestValidateFormUpload_BadVisitDate(t *testing.T) {
	form := validForm("tmp-1")
	form.Visits[0].VisitDate = "15/03/2026"
	err := validateFormUpload(&form)
	require.ErrorIs(t, err, ErrFormValidation)
}

func TestValidateFormUpload_EmptyVisitDateAllowed(t *testing.T) {
	form := validForm("tmp-1")
	form.Visits[0].VisitDate = ""
	require.NoError(t, validateFormUpload(&form))
}

func TestValidateFormUpload_NoVisitsAllowed(t *testing.T) {
	// A form can be uploaded before any visit happened.
	form := validForm("tmp-1")
	form.Visits = nil
	require.NoError(t, validateFormUpload(&form))
}

func TestParseVisitDate(t *testing.T) {
	require.Nil(t, parseVisitDate(""))

	parsed := parseVisitDate("2026-03-15")
	require.NotNil(t, parsed)
	require.Equal(t, 2026, parsed.Year())
	require.Equal(t, 15, parsed.Day())
}
