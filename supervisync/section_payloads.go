// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package supervisync

// Section payloads are the seven fixed survey schemas attached to a visit.
// Every nominal field holds "Y", "N" or "" (not supervised); comments are free
// text. The field lists are the wire contract: the JSON decoder rejects
// unknown keys, and the db tags drive the generic section writer/reader, so
// adding a field means adding it here and in the migration.

// AdminManagementPayload covers facility governance and management basics.
type AdminManagementPayload struct {
	CommitteeFormed         string `json:"committeeFormed" db:"committee_formed"`
	CommitteeMeetingsHeld   string `json:"committeeMeetingsHeld" db:"committee_meetings_held"`
	SupervisionDiscussed    string `json:"supervisionDiscussed" db:"supervision_discussed"`
	SanctionedPostsFilled   string `json:"sanctionedPostsFilled" db:"sanctioned_posts_filled"`
	OpeningHoursDisplayed   string `json:"openingHoursDisplayed" db:"opening_hours_displayed"`
	CitizenCharterDisplayed string `json:"citizenCharterDisplayed" db:"citizen_charter_displayed"`
	SuggestionBoxUsed       string `json:"suggestionBoxUsed" db:"suggestion_box_used"`
	Comments                string `json:"comments" db:"comments"`
}

// SectionKind implements SectionPayload.
func (*AdminManagementPayload) SectionKind() SectionKind { return SectionAdminManagement }

// LogisticsPayload is the wide drug and supply availability record. Flags are
// grouped the way the paper form groups them: hypertension, diabetes,
// cardiovascular, respiratory, mental health, then consumables and records.
type LogisticsPayload struct {
	Amlodipine           string `json:"amlodipine" db:"amlodipine"`
	Enalapril            string `json:"enalapril" db:"enalapril"`
	Losartan             string `json:"losartan" db:"losartan"`
	Atenolol             string `json:"atenolol" db:"atenolol"`
	Metoprolol           string `json:"metoprolol" db:"metoprolol"`
	Hydrochlorothiazide  string `json:"hydrochlorothiazide" db:"hydrochlorothiazide"`
	Furosemide           string `json:"furosemide" db:"furosemide"`
	Metformin            string `json:"metformin" db:"metformin"`
	Glibenclamide        string `json:"glibenclamide" db:"glibenclamide"`
	Gliclazide           string `json:"gliclazide" db:"gliclazide"`
	InsulinNPH           string `json:"insulinNph" db:"insulin_nph"`
	InsulinRegular       string `json:"insulinRegular" db:"insulin_regular"`
	AspirinLowDose       string `json:"aspirinLowDose" db:"aspirin_low_dose"`
	Atorvastatin         string `json:"atorvastatin" db:"atorvastatin"`
	Simvastatin          string `json:"simvastatin" db:"simvastatin"`
	IsosorbideDinitrate  string `json:"isosorbideDinitrate" db:"isosorbide_dinitrate"`
	Warfarin             string `json:"warfarin" db:"warfarin"`
	SalbutamolInhaler    string `json:"salbutamolInhaler" db:"salbutamol_inhaler"`
	SalbutamolTablet     string `json:"salbutamolTablet" db:"salbutamol_tablet"`
	Beclomethasone       string `json:"beclomethasoneInhaler" db:"beclomethasone_inhaler"`
	Ipratropium          string `json:"ipratropium" db:"ipratropium"`
	Prednisolone         string `json:"prednisolone" db:"prednisolone"`
	Aminophylline        string `json:"aminophylline" db:"aminophylline"`
	Amitriptyline        string `json:"amitriptyline" db:"amitriptyline"`
	Fluoxetine           string `json:"fluoxetine" db:"fluoxetine"`
	Diazepam             string `json:"diazepam" db:"diazepam"`
	Phenobarbitone       string `json:"phenobarbitone" db:"phenobarbitone"`
	Phenytoin            string `json:"phenytoin" db:"phenytoin"`
	Carbamazepine        string `json:"carbamazepine" db:"carbamazepine"`
	SodiumValproate      string `json:"sodiumValproate" db:"sodium_valproate"`
	Risperidone          string `json:"risperidone" db:"risperidone"`
	Chlorpromazine       string `json:"chlorpromazine" db:"chlorpromazine"`
	Haloperidol          string `json:"haloperidol" db:"haloperidol"`
	GlucometerStrips     string `json:"glucometerStrips" db:"glucometer_strips"`
	UrineProteinStrips   string `json:"urineProteinStrips" db:"urine_protein_strips"`
	UrineKetoneStrips    string `json:"urineKetoneStrips" db:"urine_ketone_strips"`
	Lancets              string `json:"lancets" db:"lancets"`
	Syringes             string `json:"syringes" db:"syringes"`
	NcdRegisterAvailable string `json:"ncdRegisterAvailable" db:"ncd_register_available"`
	ReportingFormsStock  string `json:"reportingFormsStock" db:"reporting_forms_stock"`
	StockRegisterUpdated string `json:"stockRegisterUpdated" db:"stock_register_updated"`
	ExpiredDrugsRemoved  string `json:"expiredDrugsRemoved" db:"expired_drugs_removed"`
	StorageAdequate      string `json:"storageAdequate" db:"storage_adequate"`
	Comments             string `json:"comments" db:"comments"`
}

// SectionKind implements SectionPayload.
func (*LogisticsPayload) SectionKind() SectionKind { return SectionLogistics }

// EquipmentPayload records functional availability of clinical equipment.
type EquipmentPayload struct {
	BpSet           string `json:"bpSet" db:"bp_set"`
	Stethoscope     string `json:"stethoscope" db:"stethoscope"`
	Glucometer      string `json:"glucometer" db:"glucometer"`
	WeighingScale   string `json:"weighingScale" db:"weighing_scale"`
	HeightScale     string `json:"heightScale" db:"height_scale"`
	MeasuringTape   string `json:"measuringTape" db:"measuring_tape"`
	Thermometer     string `json:"thermometer" db:"thermometer"`
	PulseOximeter   string `json:"pulseOximeter" db:"pulse_oximeter"`
	Nebulizer       string `json:"nebulizer" db:"nebulizer"`
	PeakFlowMeter   string `json:"peakFlowMeter" db:"peak_flow_meter"`
	SnellenChart    string `json:"snellenChart" db:"snellen_chart"`
	Monofilament    string `json:"monofilament" db:"monofilament"`
	TuningFork      string `json:"tuningFork" db:"tuning_fork"`
	ExaminationBed  string `json:"examinationBed" db:"examination_bed"`
	Torchlight      string `json:"torchlight" db:"torchlight"`
	Refrigerator    string `json:"refrigerator" db:"refrigerator"`
	OxygenCylinder  string `json:"oxygenCylinder" db:"oxygen_cylinder"`
	Comments        string `json:"comments" db:"comments"`
}

// SectionKind implements SectionPayload.
func (*EquipmentPayload) SectionKind() SectionKind { return SectionEquipment }

// MhdcManagementPayload covers the MhDC (NCD clinic) service management checks.
type MhdcManagementPayload struct {
	ClinicOperational        string `json:"clinicOperational" db:"clinic_operational"`
	NcdRegisterMaintained    string `json:"ncdRegisterMaintained" db:"ncd_register_maintained"`
	TreatmentProtocolOnSite  string `json:"treatmentProtocolOnSite" db:"treatment_protocol_on_site"`
	TreatmentProtocolUsed    string `json:"treatmentProtocolUsed" db:"treatment_protocol_used"`
	ReferralMechanismUsed    string `json:"referralMechanismUsed" db:"referral_mechanism_used"`
	FollowUpTracking         string `json:"followUpTracking" db:"follow_up_tracking"`
	CounselingProvided       string `json:"counselingProvided" db:"counseling_provided"`
	EducationMaterialsOnSite string `json:"educationMaterialsOnSite" db:"education_materials_on_site"`
	Comments                 string `json:"comments" db:"comments"`
}

// SectionKind implements SectionPayload.
func (*MhdcManagementPayload) SectionKind() SectionKind { return SectionMhdcManagement }

// ServiceStandardsPayload covers service delivery quality checks.
type ServiceStandardsPayload struct {
	OpdServiceRegular       string `json:"opdServiceRegular" db:"opd_service_regular"`
	WaitingTimeAcceptable   string `json:"waitingTimeAcceptable" db:"waiting_time_acceptable"`
	PrivacyMaintained       string `json:"privacyMaintained" db:"privacy_maintained"`
	InfectionPrevention     string `json:"infectionPrevention" db:"infection_prevention"`
	WasteSegregation        string `json:"wasteSegregation" db:"waste_segregation"`
	HandWashingFacility     string `json:"handWashingFacility" db:"hand_washing_facility"`
	DispensingCounseling    string `json:"dispensingCounseling" db:"dispensing_counseling"`
	RecordsKeptConfidential string `json:"recordsKeptConfidential" db:"records_kept_confidential"`
	Comments                string `json:"comments" db:"comments"`
}

// SectionKind implements SectionPayload.
func (*ServiceStandardsPayload) SectionKind() SectionKind { return SectionServiceStandards }

// HealthInformationPayload covers recording and reporting checks.
type HealthInformationPayload struct {
	MonthlyReportingTimely string `json:"monthlyReportingTimely" db:"monthly_reporting_timely"`
	HmisFormatsUsed        string `json:"hmisFormatsUsed" db:"hmis_formats_used"`
	DataAccuracyChecked    string `json:"dataAccuracyChecked" db:"data_accuracy_checked"`
	RegistersUpToDate      string `json:"registersUpToDate" db:"registers_up_to_date"`
	DashboardDisplayed     string `json:"dashboardDisplayed" db:"dashboard_displayed"`
	CatchmentDataCharted   string `json:"catchmentDataCharted" db:"catchment_data_charted"`
	Comments               string `json:"comments" db:"comments"`
}

// SectionKind implements SectionPayload.
func (*HealthInformationPayload) SectionKind() SectionKind { return SectionHealthInformation }

// IntegrationPayload covers how NCD services link into the wider facility.
type IntegrationPayload struct {
	NcdScreeningInOpd        string `json:"ncdScreeningInOpd" db:"ncd_screening_in_opd"`
	OpportunisticScreening   string `json:"opportunisticScreening" db:"opportunistic_screening"`
	CommunityReferralLinkage string `json:"communityReferralLinkage" db:"community_referral_linkage"`
	FchvInvolved             string `json:"fchvInvolved" db:"fchv_involved"`
	SchoolHealthLinkage      string `json:"schoolHealthLinkage" db:"school_health_linkage"`
	OutreachClinicLinkage    string `json:"outreachClinicLinkage" db:"outreach_clinic_linkage"`
	Comments                 string `json:"comments" db:"comments"`
}

// SectionKind implements SectionPayload.
func (*IntegrationPayload) SectionKind() SectionKind { return SectionIntegration }

// StaffTrainingPayload holds form-level counts of staff trained per cadre.
// It belongs to the form, not to a visit.
type StaffTrainingPayload struct {
	MedicalOfficersTrained  int `json:"medicalOfficersTrained" db:"medical_officers_trained"`
	HealthAssistantsTrained int `json:"healthAssistantsTrained" db:"health_assistants_trained"`
	StaffNursesTrained      int `json:"staffNursesTrained" db:"staff_nurses_trained"`
	AhwTrained              int `json:"ahwTrained" db:"ahw_trained"`
	AnmTrained              int `json:"anmTrained" db:"anm_trained"`
	OthersTrained           int `json:"othersTrained" db:"others_trained"`
}
