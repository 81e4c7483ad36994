package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/near/borsh-go"
)

// ActionKind mirrors the wire discriminant of Action.
type ActionKind uint8

const (
	ActionCreateAccount ActionKind = iota
	ActionDeployContract
	ActionFunctionCall
	ActionTransfer
	ActionStake
	ActionAddKey
	ActionDeleteKey
	ActionDeleteAccount
	ActionDelegate
)

var actionKindNames = [...]string{
	"CreateAccount",
	"DeployContract",
	"FunctionCall",
	"Transfer",
	"Stake",
	"AddKey",
	"DeleteKey",
	"DeleteAccount",
	"Delegate",
}

func (k ActionKind) String() string {
	if int(k) < len(actionKindNames) {
		return actionKindNames[k]
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

var ErrInvalidAmount = errors.New("invalid amount")

// Action is one step of a transaction. Only the field selected by Enum is meaningful.
type Action struct {
	Enum           borsh.Enum `borsh_enum:"true"`
	CreateAccount  CreateAccount
	DeployContract DeployContract
	FunctionCall   FunctionCall
	Transfer       Transfer
	Stake          Stake
	AddKey         AddKey
	DeleteKey      DeleteKey
	DeleteAccount  DeleteAccount
	Delegate       SignedDelegate
}

func (a *Action) Kind() ActionKind {
	return ActionKind(a.Enum)
}

type CreateAccount struct{}

type DeployContract struct {
	Code []byte
}

type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    big.Int
}

type Transfer struct {
	Deposit big.Int
}

type Stake struct {
	Stake     big.Int
	PublicKey PublicKey
}

type AddKey struct {
	PublicKey PublicKey
	AccessKey AccessKey
}

type DeleteKey struct {
	PublicKey PublicKey
}

type DeleteAccount struct {
	BeneficiaryID string
}

type AccessKey struct {
	Nonce      uint64
	Permission AccessKeyPermission
}

type AccessKeyPermission struct {
	Enum         borsh.Enum `borsh_enum:"true"`
	FunctionCall FunctionCallPermission
	FullAccess   FullAccessPermission
}

const (
	PermissionFunctionCall borsh.Enum = 0
	PermissionFullAccess   borsh.Enum = 1
)

func (p *AccessKeyPermission) IsFullAccess() bool {
	return p.Enum == PermissionFullAccess
}

type FunctionCallPermission struct {
	Allowance   OptionalBalance
	ReceiverID  string
	MethodNames []string
}

type FullAccessPermission struct{}

// OptionalBalance is Option<u128>. It is an enum rather than a pointer so decoding
// None yields None again.
type OptionalBalance struct {
	Enum borsh.Enum `borsh_enum:"true"`
	None struct{}
	Some Balance
}

type Balance struct {
	Amount big.Int
}

// NewOptionalBalance returns None for a nil amount.
func NewOptionalBalance(amount *big.Int) (OptionalBalance, error) {
	if amount == nil {
		return OptionalBalance{Enum: 0}, nil
	}
	v, err := toU128(amount)
	if err != nil {
		return OptionalBalance{}, err
	}
	return OptionalBalance{Enum: 1, Some: Balance{Amount: v}}, nil
}

// Value returns the amount, or nil for None.
func (o *OptionalBalance) Value() *big.Int {
	if o.Enum == 0 {
		return nil
	}
	return new(big.Int).Set(&o.Some.Amount)
}

func toU128(amount *big.Int) (big.Int, error) {
	var out big.Int
	if amount == nil {
		return out, nil
	}
	if amount.Sign() < 0 {
		return out, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}
	if amount.BitLen() > 128 {
		return out, fmt.Errorf("%w: %s does not fit in u128", ErrInvalidAmount, amount)
	}
	out.Set(amount)
	return out, nil
}

func NewCreateAccountAction() Action {
	return Action{Enum: borsh.Enum(ActionCreateAccount)}
}

func NewDeployContractAction(code []byte) Action {
	return Action{Enum: borsh.Enum(ActionDeployContract), DeployContract: DeployContract{Code: code}}
}

func NewFunctionCallAction(methodName string, args []byte, gas uint64, deposit *big.Int) (Action, error) {
	d, err := toU128(deposit)
	if err != nil {
		return Action{}, err
	}
	return Action{
		Enum: borsh.Enum(ActionFunctionCall),
		FunctionCall: FunctionCall{
			MethodName: methodName,
			Args:       args,
			Gas:        gas,
			Deposit:    d,
		},
	}, nil
}

func NewTransferAction(deposit *big.Int) (Action, error) {
	d, err := toU128(deposit)
	if err != nil {
		return Action{}, err
	}
	return Action{Enum: borsh.Enum(ActionTransfer), Transfer: Transfer{Deposit: d}}, nil
}

func NewStakeAction(stake *big.Int, publicKey PublicKey) (Action, error) {
	s, err := toU128(stake)
	if err != nil {
		return Action{}, err
	}
	return Action{Enum: borsh.Enum(ActionStake), Stake: Stake{Stake: s, PublicKey: publicKey}}, nil
}

func NewAddFullAccessKeyAction(publicKey PublicKey, nonce uint64) Action {
	return Action{
		Enum: borsh.Enum(ActionAddKey),
		AddKey: AddKey{
			PublicKey: publicKey,
			AccessKey: AccessKey{
				Nonce:      nonce,
				Permission: AccessKeyPermission{Enum: PermissionFullAccess},
			},
		},
	}
}

// NewAddFunctionCallKeyAction adds a key restricted to receiverID. A nil allowance means unlimited.
func NewAddFunctionCallKeyAction(publicKey PublicKey, nonce uint64, allowance *big.Int, receiverID string, methodNames []string) (Action, error) {
	a, err := NewOptionalBalance(allowance)
	if err != nil {
		return Action{}, err
	}
	return Action{
		Enum: borsh.Enum(ActionAddKey),
		AddKey: AddKey{
			PublicKey: publicKey,
			AccessKey: AccessKey{
				Nonce: nonce,
				Permission: AccessKeyPermission{
					Enum: PermissionFunctionCall,
					FunctionCall: FunctionCallPermission{
						Allowance:   a,
						ReceiverID:  receiverID,
						MethodNames: methodNames,
					},
				},
			},
		},
	}, nil
}

func NewDeleteKeyAction(publicKey PublicKey) Action {
	return Action{Enum: borsh.Enum(ActionDeleteKey), DeleteKey: DeleteKey{PublicKey: publicKey}}
}

func NewDeleteAccountAction(beneficiaryID string) Action {
	return Action{Enum: borsh.Enum(ActionDeleteAccount), DeleteAccount: DeleteAccount{BeneficiaryID: beneficiaryID}}
}

// NewSignedDelegateAction wraps a signed meta-transaction so a relayer can submit it.
func NewSignedDelegateAction(signed SignedDelegate) Action {
	return Action{Enum: borsh.Enum(ActionDelegate), Delegate: signed}
}
