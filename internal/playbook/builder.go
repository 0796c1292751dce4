// Package playbook renders the final training document from the four stage
// payloads. Build is pure: identical inputs produce identical markdown, and
// missing fields render a marked placeholder instead of breaking a section.
package playbook

import (
	"fmt"
	"strings"
	"time"

	"playbookd/internal/model"
)

const noData = "*No data available*"

// frameworkGuide is the per-region reference rendered in the compliance
// section. Unknown frameworks fall back to Global.
var frameworkGuide = map[string]struct {
	Regulations string
	Focus       string
}{
	"EU": {
		Regulations: "EU Green Claims Directive, CSRD, EU Taxonomy Regulation",
		Focus:       "Substantiation requirements, corporate transparency, taxonomy alignment",
	},
	"USA": {
		Regulations: "FTC Green Guides, SEC Climate Disclosure Rules",
		Focus:       "Truthful advertising standards, climate risk disclosure",
	},
	"UK": {
		Regulations: "CMA Green Claims Code, FCA Sustainability Requirements",
		Focus:       "Consumer protection, financial product transparency",
	},
	"Global": {
		Regulations: "ISO 14021, GRI Standards, TCFD Recommendations",
		Focus:       "International standards, voluntary best practices",
	},
}

// Build assembles the playbook document. Section order is fixed; every
// section renders even when its payload is nil.
func Build(scenario, problems, corrections, implementation model.Payload, req model.TrainingRequest, sessionID string, generatedAt time.Time) string {
	b := &builder{
		scenario:       scenario,
		problems:       problems,
		corrections:    corrections,
		implementation: implementation,
		request:        req,
		sessionID:      sessionID,
		generatedAt:    generatedAt,
	}
	b.company = b.str(scenario, "company_name", "Your Organization")
	b.industry = b.str(scenario, "industry", req.IndustryFocus)
	b.framework = req.RegulatoryFramework
	if b.framework == "" {
		b.framework = "Global"
	}

	sections := []string{
		b.header(),
		b.tableOfContents(),
		b.executiveSummary(),
		b.businessScenario(),
		b.riskAnalysis(),
		b.correctionsSection(),
		b.transformations(),
		b.implementationRoadmap(),
		b.successMetrics(),
		b.regulatoryGuide(),
		b.quickReference(),
		b.sessionInfo(),
	}
	return strings.Join(sections, "\n\n")
}

type builder struct {
	scenario       model.Payload
	problems       model.Payload
	corrections    model.Payload
	implementation model.Payload
	request        model.TrainingRequest
	sessionID      string
	generatedAt    time.Time

	company   string
	industry  string
	framework string
}

func (b *builder) str(data model.Payload, key, fallback string) string {
	if data != nil {
		if s, ok := data[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if fallback != "" {
		return fallback
	}
	return noData
}

func (b *builder) list(data model.Payload, key string) []string {
	if data == nil {
		return nil
	}
	raw, _ := data[key].([]any)
	var items []string
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			items = append(items, s)
		}
	}
	return items
}

func (b *builder) entries(data model.Payload, key string) []model.Payload {
	if data == nil {
		return nil
	}
	raw, _ := data[key].([]any)
	var entries []model.Payload
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			entries = append(entries, m)
		}
	}
	return entries
}

func bullets(items []string) string {
	if len(items) == 0 {
		return noData
	}
	var lines []string
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}

func numbered(items []string) string {
	if len(items) == 0 {
		return noData
	}
	var lines []string
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
	}
	return strings.Join(lines, "\n")
}

func (b *builder) header() string {
	return fmt.Sprintf(`# Sustainability Messaging Playbook
## %s - Strategic Communication Guide

**Company:** %s
**Industry:** %s
**Regulatory Framework:** %s
**Training Level:** %s
**Generated:** %s
**Session ID:** %s

---

> This playbook provides %s with industry-specific guidance for creating
> compliant sustainability messaging under the %s regulatory framework
> while maintaining marketing effectiveness.

---`,
		b.company, b.company, b.industry, b.framework,
		b.str(nil, "", b.request.TrainingLevel),
		b.generatedAt.Format("2006-01-02 15:04:05"), b.sessionID,
		b.company, b.framework)
}

func (b *builder) tableOfContents() string {
	return `## Table of Contents

1. [Executive Summary](#executive-summary)
2. [Business Scenario & Context](#business-scenario--context)
3. [Problematic Messaging Analysis](#problematic-messaging-analysis)
4. [Best Practice Corrections](#best-practice-corrections)
5. [Message Transformations](#message-transformations)
6. [Implementation Roadmap](#implementation-roadmap)
7. [Success Metrics & Monitoring](#success-metrics--monitoring)
8. [Regulatory Compliance Guide](#regulatory-compliance-guide)
9. [Quick Reference Tools](#quick-reference-tools)
10. [Session Information](#session-information)

---`
}

func (b *builder) executiveSummary() string {
	return fmt.Sprintf(`## Executive Summary

### Training Overview for %s

This playbook addresses the sustainability messaging needs of **%s**, a %s
organization in the %s sector, operating under the %s regulatory framework.

**Business Context:**
- **Location:** %s
- **Target Market:** %s
- **Current Focus:** %s

### Training Content Delivered

- **%d Marketing Objectives** analyzed for sustainability implications
- **%d Preliminary Claims** reviewed for compliance risks
- **%d Problematic Messages** identified with regulatory analysis
- **%d Corrected Alternatives** provided with compliance guidance
- **%d-Step Implementation Roadmap** with practical next actions

### Immediate Action Items

1. Review the problematic message examples to understand regulatory risks
2. Apply the corrected alternatives in current marketing materials
3. Deploy the validation frameworks for ongoing message development
4. Train the marketing team with the guidelines included here
5. Establish monitoring to keep messaging compliant over time

---`,
		b.company, b.company,
		b.str(b.scenario, "company_size", "privately held"),
		b.industry, b.framework,
		b.str(b.scenario, "location", ""),
		b.str(b.scenario, "target_audience", ""),
		b.str(b.scenario, "sustainability_context", ""),
		len(b.list(b.scenario, "marketing_objectives")),
		len(b.list(b.scenario, "preliminary_claims")),
		len(b.entries(b.problems, "problematic_messages")),
		len(b.entries(b.corrections, "corrected_messages")),
		len(b.list(b.implementation, "implementation_roadmap")))
}

func (b *builder) businessScenario() string {
	return fmt.Sprintf(`## Business Scenario & Context
### %s - Complete Business Profile

#### Company Overview

**Organization Name:** %s
**Industry Sector:** %s
**Company Size:** %s
**Geographic Location:** %s

#### Products & Services

%s

#### Target Market

%s

#### Strategic Marketing Objectives

%s

#### Current Sustainability Context

%s

**Current Practices:**
%s

**Key Challenges:**
%s

#### Preliminary Claims Under Review

%s

#### Regulatory Compliance Context

**%s Regulatory Environment:**
%s

#### Research Foundation

%s

---`,
		b.company, b.company, b.industry,
		b.str(b.scenario, "company_size", ""),
		b.str(b.scenario, "location", ""),
		b.str(b.scenario, "product_service", ""),
		b.str(b.scenario, "target_audience", ""),
		numbered(b.list(b.scenario, "marketing_objectives")),
		b.str(b.scenario, "sustainability_context", ""),
		bullets(b.list(b.scenario, "current_practices")),
		bullets(b.list(b.scenario, "challenges_faced")),
		bullets(b.list(b.scenario, "preliminary_claims")),
		b.framework,
		b.str(b.scenario, "regulatory_context", ""),
		bullets(b.list(b.scenario, "market_research_sources")))
}

func (b *builder) riskAnalysis() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `## Problematic Messaging Analysis
### Risk Assessment for %s

The following section analyzes each problematic message in %s's context.
`, b.company, b.company)

	messages := b.entries(b.problems, "problematic_messages")
	if len(messages) == 0 {
		sb.WriteString("\n" + noData + "\n")
	}
	for i, msg := range messages {
		id := b.str(msg, "id", fmt.Sprintf("msg%d", i+1))
		fmt.Fprintf(&sb, `
#### Problematic Message #%d (ID: %s)

**Problematic Statement:**
> "%s"

**Problems Identified:**
%s

**Regulatory Violations:**
%s

**Risk Analysis:**
%s

**Potential Consequences:**
%s
`,
			i+1, id,
			b.str(msg, "message", ""),
			bullets(b.list(msg, "problems_identified")),
			bullets(b.list(msg, "regulatory_violations")),
			b.str(msg, "why_problematic", ""),
			bullets(b.list(msg, "potential_consequences")))
	}

	sb.WriteString("\n---")
	return sb.String()
}

func (b *builder) correctionsSection() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `## Best Practice Corrections
### Transforming Risk into Compliance for %s

Each correction below addresses one problematic message with specific,
verifiable improvements compliant with %s requirements.
`, b.company, b.framework)

	corrected := b.entries(b.corrections, "corrected_messages")
	if len(corrected) == 0 {
		sb.WriteString("\n" + noData + "\n")
	}
	for i, corr := range corrected {
		fmt.Fprintf(&sb, `
#### Correction #%d (Original ID: %s)

**Improved Compliant Message:**
> "%s"

**Changes Made:**
%s

**Compliance Notes:**
%s
`,
			i+1,
			b.str(corr, "original_message_id", fmt.Sprintf("msg%d", i+1)),
			b.str(corr, "corrected_message", ""),
			bullets(b.list(corr, "changes_made")),
			b.str(corr, "compliance_notes", ""))
	}

	sb.WriteString("\n---")
	return sb.String()
}

// transformations renders the before/after view, pairing problems to
// corrections by shared identifier.
func (b *builder) transformations() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `## Message Transformations
### Before & After: Complete Compliance Journey

This section shows how %s can keep marketing impact while moving each
message from risk to compliance.
`, b.company)

	byID := map[string]model.Payload{}
	for _, corr := range b.entries(b.corrections, "corrected_messages") {
		if id := b.str(corr, "original_message_id", ""); id != noData {
			byID[id] = corr
		}
	}

	rendered := 0
	for i, msg := range b.entries(b.problems, "problematic_messages") {
		id := b.str(msg, "id", fmt.Sprintf("msg%d", i+1))
		corr, ok := byID[id]
		if !ok {
			continue
		}
		rendered++
		fmt.Fprintf(&sb, `
### Transformation %s

#### BEFORE: Problematic Version

> "%s"

**Key Issues:**
%s

**Regulatory Risk Level:** High Risk

#### AFTER: Compliant Version

> "%s"

**Key Improvements:**
%s

**Regulatory Risk Level:** Compliant
`,
			id,
			b.str(msg, "message", ""),
			bullets(b.list(msg, "problems_identified")),
			b.str(corr, "corrected_message", ""),
			bullets(b.list(corr, "changes_made")))
	}
	if rendered == 0 {
		sb.WriteString("\n" + noData + "\n")
	}

	sb.WriteString("\n---")
	return sb.String()
}

func (b *builder) implementationRoadmap() string {
	return fmt.Sprintf(`## Implementation Roadmap
### Practical Deployment Guide for %s

#### Step-by-Step Implementation Plan

%s

#### Timeline & Milestones

%s

#### Team Training Requirements

%s

#### Required Tools & Resources

%s

#### Industry-Specific Considerations

%s

---`,
		b.company,
		numbered(b.list(b.implementation, "implementation_roadmap")),
		bullets(b.list(b.implementation, "timeline_milestones")),
		bullets(b.list(b.implementation, "team_training_requirements")),
		bullets(b.list(b.implementation, "tools_and_resources")),
		b.str(b.implementation, "industry_specific_considerations", ""))
}

func (b *builder) successMetrics() string {
	return fmt.Sprintf(`## Success Metrics & Monitoring
### Measuring Impact & Ensuring Ongoing Compliance

#### Key Performance Indicators

%s

#### Compliance Monitoring Schedule

%s

#### Regular Review Process

- **Weekly:** Message approval and validation
- **Monthly:** Compliance audit and risk assessment
- **Quarterly:** Full messaging strategy review
- **Annually:** Regulatory update and training refresh

---`,
		numbered(b.list(b.implementation, "success_metrics")),
		b.str(b.implementation, "regulatory_compliance_schedule", ""))
}

func (b *builder) regulatoryGuide() string {
	guide, ok := frameworkGuide[b.framework]
	if !ok {
		guide = frameworkGuide["Global"]
	}

	return fmt.Sprintf(`## Regulatory Compliance Guide
### %s Requirements for Sustainability Messaging

#### Key Regulations

**Primary Regulatory Framework:**
%s

**Enforcement Focus:**
%s

#### Compliance Checklist

Before publishing any sustainability message:

1. **Evidence Check** - all claims backed by verifiable data, certifications current
2. **Language Review** - no vague or absolute terms without justification
3. **Regulatory Alignment** - complies with current %s requirements
4. **Stakeholder Impact** - clear to the audience, no room for confusion

#### Red Flags to Avoid

- **Absolute claims:** "100%% sustainable", "completely eco-friendly"
- **Vague terms:** "environmentally friendly", "natural", "green"
- **Future promises** without interim milestones and accountability
- **Selective disclosure** that hides material negatives
- **Unsubstantiated comparisons** against competitors

---`,
		b.framework, guide.Regulations, guide.Focus, b.framework)
}

func (b *builder) quickReference() string {
	return fmt.Sprintf(`## Quick Reference Tools
### Essential Resources for Daily Use

#### Message Validation Framework

1. **CLAIM** - what specific sustainability benefit are you claiming?
2. **EVIDENCE** - what proof supports this claim?
3. **SCOPE** - what are the boundaries and limitations?
4. **VERIFY** - has this been independently validated?
5. **COMMUNICATE** - is the message clear and not misleading?

#### 30-Second Compliance Check

1. Can I prove this claim with data?
2. Would a reasonable consumer understand the scope?
3. Does this comply with %s rules?
4. Have I avoided absolute terms without justification?

If any answer is "no", stop and revise the message.

#### Approved Language Patterns

| Instead of | Use |
|---|---|
| "100%% sustainable" | "Certified sustainable by [specific certification]" |
| "Eco-friendly packaging" | "Packaging made from 80%% recycled materials" |
| "Carbon neutral" | "Carbon neutral for Scope 1 and 2 emissions, verified by [third party]" |
| "Natural ingredients" | "Contains 95%% naturally-derived ingredients as defined by [standard]" |

---`, b.framework)
}

func (b *builder) sessionInfo() string {
	return fmt.Sprintf(`## Session Information
### Training Session Details

**Session ID:** %s
**Generation Date:** %s
**Company:** %s
**Industry:** %s
**Regulatory Framework:** %s
**Training Level:** %s

#### Content Metrics

- Problematic messages analyzed: %d
- Corrected alternatives provided: %d
- Roadmap steps: %d
- Success metrics defined: %d

*This playbook was generated for %s from the session's validated stage
artifacts. Recommendations should be reviewed quarterly or when
regulations change.*`,
		b.sessionID,
		b.generatedAt.Format("2006-01-02 15:04:05"),
		b.company, b.industry, b.framework,
		b.str(nil, "", b.request.TrainingLevel),
		len(b.entries(b.problems, "problematic_messages")),
		len(b.entries(b.corrections, "corrected_messages")),
		len(b.list(b.implementation, "implementation_roadmap")),
		len(b.list(b.implementation, "success_metrics")),
		b.company)
}
