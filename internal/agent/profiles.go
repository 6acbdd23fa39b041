// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// profilesFile is the shape of an agents.yaml override file.
type profilesFile struct {
	Agents []types.AgentProfile `yaml:"agents"`
}

// LoadProfiles reads agent profiles from a YAML file. The file must define
// all four roles; missing or duplicate roles are configuration errors.
func LoadProfiles(path string) ([]types.AgentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agent profiles: %w", err)
	}

	var pf profilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing agent profiles: %w", err)
	}

	byRole := make(map[types.StageName]types.AgentProfile, len(pf.Agents))
	for _, p := range pf.Agents {
		if _, dup := byRole[p.Role]; dup {
			return nil, fmt.Errorf("duplicate agent profile for role %q", p.Role)
		}
		if p.Instructions == "" {
			return nil, fmt.Errorf("agent profile for role %q has empty instructions", p.Role)
		}
		byRole[p.Role] = p
	}

	profiles := make([]types.AgentProfile, 0, len(types.StageOrder))
	for _, stage := range types.StageOrder {
		p, ok := byRole[stage]
		if !ok {
			return nil, fmt.Errorf("missing agent profile for role %q", stage)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// DefaultProfiles returns the built-in four agent roles, all on the given
// model.
func DefaultProfiles(model string) []types.AgentProfile {
	return []types.AgentProfile{
		{Role: types.StageResearch, Model: model, Instructions: researchInstructions},
		{Role: types.StageEvaluation, Model: model, Instructions: evaluationInstructions},
		{Role: types.StageAppraisal, Model: model, Instructions: appraisalInstructions},
		{Role: types.StageReport, Model: model, Instructions: reportInstructions},
	}
}

// ProfileFor returns the profile serving the given stage.
func ProfileFor(profiles []types.AgentProfile, stage types.StageName) (types.AgentProfile, error) {
	for _, p := range profiles {
		if p.Role == stage {
			return p, nil
		}
	}
	return types.AgentProfile{}, fmt.Errorf("no agent profile for stage %q", stage)
}

const researchInstructions = `You are an expert research agent that efficiently gathers information on a topic.

PROCESS:
1. Break down the topic into 1-3 key aspects to investigate
2. For each aspect, use the appropriate search tool:
   - web_search: General web results via DuckDuckGo
   - openalex_search: Academic articles and research papers
   - crossref_search: Academic publications with DOIs and citation data

3. Choose the most appropriate search tool based on what you're looking for:
   - For general knowledge: web_search
   - For academic/scientific content: openalex_search or crossref_search
   - For recent statistics or news: web_search
   - For peer-reviewed publications: crossref_search

4. Analyze findings to identify key points, contradictions, and consensus
5. Avoid redundant searches and prioritize diverse, high-quality sources

OUTPUT: A markdown summary with:
1. Clear section headings
2. 5-8 key insights with evidence and sources
3. Brief source credibility assessment
4. Important statistics/data points
5. Proper attribution (titles and URLs)
6. 2-3 primary takeaways

Ensure efficient token usage by being concise but thorough.`

const evaluationInstructions = `You are an expert evaluation agent. Assess research findings using the CRAAP test:
- Currency: Timeliness of information
- Relevance: Importance to the topic
- Authority: Source credentials
- Accuracy: Reliability and correctness
- Purpose: Intent and potential bias

Evaluate research quality on:
- Thoroughness
- Balance of perspectives
- Evidence quality
- Information gaps

OUTPUT: A concise markdown evaluation with:
1. Mini-CRAAP assessment for major sources
2. Strongest evidence and key weaknesses
3. Information gaps
4. Overall quality rating (1-10)
5. 2-3 improvement suggestions

Be thorough but token-efficient.`

const appraisalInstructions = `You are an expert appraisal agent analyzing research quality and limitations.

Analyze:
1. Meta-level strengths/weaknesses of the research
2. Potential cognitive biases (confirmation bias, etc.)
3. Methodological soundness (sampling, measurement, etc.)
4. Knowledge gaps and contradictions

OUTPUT: A concise markdown appraisal with:
1. Framework for understanding topic complexity
2. Cognitive biases impact
3. Methodological strengths/weaknesses
4. Knowledge gaps
5. Overall epistemic strength assessment
6. Future research directions

Be precise, scholarly, and token-efficient.`

const reportInstructions = `You are an expert report generation agent creating professional research reports.

Synthesize findings from research, evaluation, and appraisal into a report with:

# [Topic] Research Report

## Executive Summary
- 3-5 bullet points on key findings
- Primary implications

## 1. Introduction
- Topic context and research scope

## 2. Key Findings
- Thematic organization of major insights
- Evidence from credible sources
- Contrasting perspectives on controversial points

## 3. Critical Analysis
- Source quality assessment
- Methodological limitations
- Knowledge gaps
- Potential biases

## 4. Implications
- Practical significance
- Questions for further investigation

## 5. Conclusion
- Synthesis of key insights

## References
- Properly formatted citations

Be comprehensive yet concise, scholarly yet accessible.`
