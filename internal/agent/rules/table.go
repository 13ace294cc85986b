package rules

import (
	"github.com/drblury/agentflow/internal/agent/config"
	"github.com/drblury/agentflow/internal/agent/domain"
	"github.com/drblury/agentflow/internal/agent/procs"
)

// StandardRules builds the registry binding the stock processes to the
// events that trigger them, carried over from the legacy moderation system.
func StandardRules(cfg *config.Config, svc procs.Services) *Registry {
	titleParams := ConfigParams(cfg,
		config.ParamTitleSimilarityWindow,
		config.ParamTitleSimilarityThreshold)
	reclassParams := ConfigParams(cfg,
		config.ParamNoReclassifyCategories,
		config.ParamNoReclassifyArchives,
		config.ParamReclassifyProposalThreshold,
		config.ParamAutoCrossForPrimary)
	sizeParams := ConfigParams(cfg,
		config.ParamUncompressedPackageMax,
		config.ParamCompressedPackageMax)

	taxonomy := svc.Taxonomy
	if taxonomy == nil {
		taxonomy = procs.DottedTaxonomy{}
	}

	registry := NewRegistry()
	registry.MustRegister(
		Rule{
			EventKind:   domain.KindConfirmPreview,
			Condition:   UserEvent,
			Params:      EmptyParams,
			Process:     procs.RunAutoclassifier(svc.PlainText, svc.Classify),
			Description: "run the autoclassifier when the preview is confirmed by the submitter",
		},
		Rule{
			EventKind:   domain.KindAddFeature,
			Condition:   FeatureTypeIs(domain.FeatureStopwordPercent),
			Params:      ConfigParams(cfg, config.ParamLowStopPercent),
			Process:     procs.CheckStopwordPercent(),
			Description: "add a flag if the percentage of stopwords is below a threshold value",
		},
		Rule{
			EventKind:   domain.KindAddFeature,
			Condition:   FeatureTypeIs(domain.FeatureStopwordCount),
			Params:      ConfigParams(cfg, config.ParamLowStop),
			Process:     procs.CheckStopwordCount(),
			Description: "add a flag if the number of stopwords is below a threshold value",
		},
		Rule{
			EventKind:   domain.KindFinalizeSubmission,
			Condition:   Always,
			Params:      EmptyParams,
			Process:     procs.SendConfirmationEmail(svc.Mail),
			Description: "send a confirmation e-mail when a submission is finalized",
		},
		Rule{
			EventKind:   domain.KindSetTitle,
			Condition:   UserEvent,
			Params:      titleParams,
			Process:     procs.CheckForSimilarTitles(svc.Titles),
			Description: "check for other submissions with similar titles, and add a flag",
		},
		Rule{
			EventKind:   domain.KindSetTitle,
			Condition:   UserEvent,
			Params:      ConfigParams(cfg, config.ParamMetadataASCIIThreshold),
			Process:     procs.CheckTitleForUnicodeAbuse(),
			Description: "check the title for excessive non-ASCII characters, and add a flag",
		},
		Rule{
			EventKind:   domain.KindSetAbstract,
			Condition:   UserEvent,
			Params:      ConfigParams(cfg, config.ParamMetadataASCIIThreshold),
			Process:     procs.CheckAbstractForUnicodeAbuse(),
			Description: "check the abstract for excessive non-ASCII characters, and add a flag",
		},
		Rule{
			EventKind:   domain.KindAddClassifierResults,
			Condition:   Always,
			Params:      reclassParams,
			Process:     procs.ProposeReclassification(taxonomy),
			Description: "evaluate classifier results and propose new classifications",
		},
		Rule{
			EventKind:   domain.KindFinalizeSubmission,
			Condition:   Always,
			Params:      reclassParams,
			Process:     procs.ProposeCrossListFromPrimaryCategory(),
			Description: "propose cross-list categories based on user selected primary category",
		},
		Rule{
			EventKind:   domain.KindAddProposal,
			Condition:   SystemEvent,
			Params:      EmptyParams,
			Process:     procs.AcceptSystemCrossListProposals(),
			Description: "accept our own proposals for adding cross-list categories",
		},
		Rule{
			EventKind:   domain.KindSetUploadPackage,
			Condition:   Always,
			Params:      sizeParams,
			Process:     procs.CheckSubmissionSourceSize(),
			Description: "check the size of the source when it is created, and add or remove holds",
		},
		Rule{
			EventKind:   domain.KindUpdateUploadPackage,
			Condition:   Always,
			Params:      sizeParams,
			Process:     procs.CheckSubmissionSourceSize(),
			Description: "check the size of the source when it is updated, and add or remove holds",
		},
		Rule{
			EventKind:   domain.KindConfirmPreview,
			Condition:   Always,
			Params:      ConfigParams(cfg, config.ParamPDFLimit),
			Process:     procs.CheckPDFSize(svc.Compiler),
			Description: "check the size of the PDF when the submitter confirms the preview",
		},
	)
	return registry
}
