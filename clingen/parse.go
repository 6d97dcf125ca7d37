package clingen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/RobokopU24/robokop-genetics/curie"
	"github.com/RobokopU24/robokop-genetics/generr"
)

// alleleRecord is the subset of a registry payload item needed to build
// a synonym set. Failing items carry errorType/description instead of an
// @id.
type alleleRecord struct {
	ID              string           `json:"@id"`
	ErrorType       string           `json:"errorType"`
	Description     string           `json:"description"`
	Message         string           `json:"message"`
	GenomicAlleles  []genomicAllele  `json:"genomicAlleles"`
	ExternalRecords *externalRecords `json:"externalRecords"`
}

type genomicAllele struct {
	HGVS            []string      `json:"hgvs"`
	ReferenceGenome string        `json:"referenceGenome"`
	Chromosome      string        `json:"chromosome"`
	Coordinates     []coordinates `json:"coordinates"`
}

type coordinates struct {
	Allele          string `json:"allele"`
	ReferenceAllele string `json:"referenceAllele"`
	Start           int64  `json:"start"`
	End             int64  `json:"end"`
}

type externalRecords struct {
	DBSNP             []dbSNPRecord     `json:"dbSNP"`
	ClinVarVariations []clinVarRecord   `json:"ClinVarVariations"`
	MyVariantHG19     []myVariantRecord `json:"MyVariantInfo_hg19"`
	MyVariantHG38     []myVariantRecord `json:"MyVariantInfo_hg38"`
}

type dbSNPRecord struct {
	RS int64 `json:"rs"`
}

type clinVarRecord struct {
	VariationID json.Number `json:"variationId"`
}

type myVariantRecord struct {
	ID string `json:"id"`
}

// decodeAlleleArray splits a registry response into raw per-item
// messages. By-id lookups return a single object instead of an array;
// both shapes are accepted.
func decodeAlleleArray(data []byte) ([]json.RawMessage, *generr.Error) {
	trimmed := strings.TrimLeft(string(data), " \t\r\n")
	if strings.HasPrefix(trimmed, "{") {
		return []json.RawMessage{json.RawMessage(data)}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, generr.Wrap(serviceName, "parse", generr.CodeParse, "unexpected registry response shape", err)
	}
	return items, nil
}

// parseAllele turns one registry payload item into a synonym set. Items
// the registry reports as errors propagate the registry's error type and
// description; items missing the canonical identifier without a
// structured error are parse failures. Nothing is silently dropped.
func parseAllele(item json.RawMessage) Result {
	var record alleleRecord
	if err := json.Unmarshal(item, &record); err != nil {
		return Result{Err: generr.Wrap(serviceName, "parse", generr.CodeParse, "undecodable registry record", err)}
	}

	if record.ID == "" {
		if record.ErrorType != "" {
			regErr := registryError{ErrorType: record.ErrorType, Description: record.Description, Message: record.Message}
			return Result{Err: generr.New(serviceName, "parse", generr.CodeRegistry, regErr.String())}
		}
		return Result{Err: generr.New(serviceName, "parse", generr.CodeParse, "registry record missing canonical identifier")}
	}

	// The canonical identifier is the trailing path segment of the @id URL.
	caid := record.ID[strings.LastIndexByte(record.ID, '/')+1:]

	synonyms := map[string]struct{}{
		curie.PrefixCAID + ":" + caid: {},
	}

	for _, allele := range record.GenomicAlleles {
		for _, hgvs := range allele.HGVS {
			synonyms[curie.PrefixHGVS+":"+hgvs] = struct{}{}
		}
		if allele.ReferenceGenome == "GRCh38" && allele.Chromosome != "" && len(allele.Coordinates) > 0 {
			coord := allele.Coordinates[0]
			positional := fmt.Sprintf("HG38|%s|%d|%d|%s|%s",
				allele.Chromosome, coord.Start, coord.End, coord.ReferenceAllele, coord.Allele)
			synonyms[curie.PrefixRoboVariant+":"+positional] = struct{}{}
		}
	}

	if ext := record.ExternalRecords; ext != nil {
		for _, rec := range ext.DBSNP {
			synonyms[fmt.Sprintf("%s:rs%d", curie.PrefixDBSNP, rec.RS)] = struct{}{}
		}
		for _, rec := range ext.ClinVarVariations {
			synonyms[curie.PrefixClinVar+":"+rec.VariationID.String()] = struct{}{}
		}
		for _, rec := range ext.MyVariantHG19 {
			synonyms[curie.PrefixMyVariantHG19+":"+rec.ID] = struct{}{}
		}
		for _, rec := range ext.MyVariantHG38 {
			synonyms[curie.PrefixMyVariantHG38+":"+rec.ID] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(synonyms))
	for s := range synonyms {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)
	return Result{Synonyms: sorted}
}
