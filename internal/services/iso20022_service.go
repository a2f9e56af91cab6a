package services

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/backend/internal/models"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
)

// ISO20022Service renders completed transfers as ISO 20022 messages for
// reconciliation exports. A transfer pair maps to one pacs.008 credit
// transfer with the pair id as the end-to-end id, so an external system
// can line exported messages up with the ledger.
type ISO20022Service struct{}

func NewISO20022Service() *ISO20022Service {
	return &ISO20022Service{}
}

const institutionBIC = "MERIDIAN"

// BuildPacs008 creates a pacs.008 FIToFICustomerCreditTransfer message
// from the two legs of an approved transfer.
func (iso *ISO20022Service) BuildPacs008(debit, credit *models.Transaction, currency string) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if debit == nil || credit == nil {
		return nil, fmt.Errorf("both transfer legs are required")
	}
	if debit.TransferPairID == nil || credit.TransferPairID == nil ||
		*debit.TransferPairID != *credit.TransferPairID {
		return nil, fmt.Errorf("legs do not belong to the same transfer")
	}
	if debit.FromAccountID == nil || credit.ToAccountID == nil {
		return nil, fmt.Errorf("transfer legs are missing account references")
	}

	msgId := uuid.New().String()
	creDtTm := time.Now()
	settlementDate := debit.CreatedAt
	// ISO amounts are decimal currency units, not cents.
	amount := float64(debit.AmountCents) / 100

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(currency),
				Value: amount,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG", // Clearing
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(debit.ID)}[0],
					EndToEndId: common.Max35Text(*debit.TransferPairID),
					TxId:       &[]common.Max35Text{common.Max35Text(credit.ID)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(currency),
					Value: amount,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(institutionBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(*debit.FromAccountID)}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(institutionBIC)}[0],
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(*credit.ToAccountID)}[0],
				},
			},
		},
	}

	return doc, nil
}

// BuildPacs002 creates a pacs.002 payment status report for a single
// transaction: ACSC for approved, RJCT for declined.
func (iso *ISO20022Service) BuildPacs002(txn *models.Transaction) (*pacs_v08.FIToFIPaymentStatusReportV08, error) {
	if txn == nil {
		return nil, fmt.Errorf("transaction is required")
	}

	status := "RJCT"
	if txn.Status == models.TxnStatusApproved {
		status = "ACSC"
	}

	endToEnd := txn.ID
	if txn.TransferPairID != nil {
		endToEnd = *txn.TransferPairID
	}

	msgId := uuid.New().String()
	creDtTm := time.Now()

	doc := &pacs_v08.FIToFIPaymentStatusReportV08{
		GrpHdr: pacs_v08.GroupHeader53{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
		},
		TxInfAndSts: []pacs_v08.PaymentTransaction80{
			{
				OrgnlInstrId:    &[]common.Max35Text{common.Max35Text(txn.ID)}[0],
				OrgnlEndToEndId: &[]common.Max35Text{common.Max35Text(endToEnd)}[0],
				OrgnlTxId:       &[]common.Max35Text{common.Max35Text(txn.ID)}[0],
				TxSts:           &[]pacs_v08.ExternalPaymentTransactionStatus1Code{pacs_v08.ExternalPaymentTransactionStatus1Code(status)}[0],
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts an ISO 20022 document to an XML string
func (iso *ISO20022Service) ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}
