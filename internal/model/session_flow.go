package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// FlowStep labels the stage of the menu/funnel journey a session reached.
type FlowStep string

const (
	FlowWelcome           FlowStep = "WELCOME"
	FlowMenuMain          FlowStep = "MENU_MAIN"
	FlowBrowseCatalog     FlowStep = "BROWSE_CATALOG"
	FlowSearch            FlowStep = "SEARCH"
	FlowFAQ               FlowStep = "FAQ"
	FlowContactSupport    FlowStep = "CONTACT_SUPPORT"
	FlowFeedback          FlowStep = "FEEDBACK"
	FlowCheckout          FlowStep = "CHECKOUT"
	FlowPayment           FlowStep = "PAYMENT"
	FlowOrderConfirmation FlowStep = "ORDER_CONFIRMATION"
	FlowServiceSelection  FlowStep = "SERVICE_SELECTION"
	FlowFormFill          FlowStep = "FORM_FILL"
	FlowConfirmation      FlowStep = "CONFIRMATION"
	FlowOther             FlowStep = "OTHER"
)

// FunnelStages is the fixed ordered stage list used for conversion-funnel
// reporting. Stages with no recorded steps report a zero count.
var FunnelStages = []FlowStep{
	FlowWelcome,
	FlowMenuMain,
	FlowServiceSelection,
	FlowFormFill,
	FlowConfirmation,
}

// SessionFlow is one recorded journey step within a session. Step orders
// start at 1 and increase by one per step; records are immutable once written.
type SessionFlow struct {
	ID            string         `json:"id" gorm:"primaryKey;type:text"`
	SessionID     string         `json:"session_id" gorm:"column:session_id;index;type:text" validate:"required"`
	FlowStep      FlowStep       `json:"flow_step" gorm:"column:flow_step;index;type:text" validate:"required"`
	StepOrder     int            `json:"step_order" gorm:"column:step_order"`
	StepTimestamp time.Time      `json:"step_timestamp,omitempty" gorm:"column:step_timestamp;index"`
	StepData      datatypes.JSON `json:"step_data,omitempty" gorm:"type:jsonb;column:step_data"`
	CreatedAt     time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the SessionFlow model.
func (SessionFlow) TableName() string {
	return "session_flows"
}

// NewSessionFlow builds a flow record for the given session and order.
func NewSessionFlow(sessionID string, step FlowStep, stepOrder int, stepData datatypes.JSON) *SessionFlow {
	return &SessionFlow{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		FlowStep:      step,
		StepOrder:     stepOrder,
		StepTimestamp: utils.Now(),
		StepData:      stepData,
	}
}
