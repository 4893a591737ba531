package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"golang-food-checkout/internal/services"
	"golang-food-checkout/pkg/apiclient"
)

var (
	homeAddress = apiclient.Address{
		ID:          "addr-1",
		Label:       "Home",
		Line1:       "1 Main St",
		City:        "Springfield",
		Coordinates: apiclient.Coordinates{Latitude: 12.97, Longitude: 77.59},
	}
	centralBranch = apiclient.Branch{ID: "br-1", Name: "Central", IsOpen: true}
	cardMethod    = apiclient.PaymentMethod{ID: "card", Name: "Card", Type: "card"}
	cashMethod    = apiclient.PaymentMethod{ID: "cod", Name: "Cash on delivery", Type: "cash", DeliveryOnly: true}
)

// checkoutBackend answers every checkout call with a happy-path response.
func checkoutBackend() *fakeBackend {
	return &fakeBackend{
		getCart: func(context.Context) (*apiclient.Cart, error) {
			return cartOf(), nil
		},
		listAddresses: func(context.Context) ([]apiclient.Address, error) {
			return []apiclient.Address{homeAddress}, nil
		},
		nearbyBranches: func(context.Context, apiclient.Coordinates) ([]apiclient.Branch, error) {
			return []apiclient.Branch{centralBranch}, nil
		},
		availability: func(context.Context, apiclient.Coordinates) (*apiclient.DeliveryAvailability, error) {
			branch := centralBranch
			return &apiclient.DeliveryAvailability{IsDeliveryAvailable: true, Branch: &branch}, nil
		},
		preparePickup: func(_ context.Context, req apiclient.PrepareOrderRequest) (*apiclient.OrderDraft, error) {
			return &apiclient.OrderDraft{ID: "draft-1", DeliveryType: "pickup", BranchID: req.BranchID, AddressID: req.AddressID, Subtotal: money("25.00"), TotalAmount: money("25.00")}, nil
		},
		prepareDeliv: func(_ context.Context, req apiclient.PrepareOrderRequest) (*apiclient.OrderDraft, error) {
			return &apiclient.OrderDraft{ID: "draft-2", DeliveryType: "delivery", AddressID: req.AddressID, Subtotal: money("25.00"), DeliveryFee: money("3.00"), TotalAmount: money("28.00")}, nil
		},
		validate: func(_ context.Context, req apiclient.ValidateVoucherRequest) (*apiclient.VoucherValidation, error) {
			return &apiclient.VoucherValidation{Valid: true, VoucherID: "v-1", Code: req.Code, DiscountAmount: money("5.00")}, nil
		},
		paymentMethods: func(context.Context) ([]apiclient.PaymentMethod, error) {
			return []apiclient.PaymentMethod{cardMethod, cashMethod}, nil
		},
		processPayment: func(context.Context, apiclient.ProcessPaymentRequest) (apiclient.PaymentDetails, error) {
			return apiclient.PaymentDetails{"reference": "pay-123"}, nil
		},
		finalize: func(context.Context, apiclient.FinalizeOrderRequest) (*apiclient.FinalizeOrderResponse, error) {
			return &apiclient.FinalizeOrderResponse{OrderID: "order-1", Status: "pending"}, nil
		},
	}
}

// draftedPickup walks a store to a prepared pickup draft.
func draftedPickup(t *testing.T, store *services.OrderStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SetSelectedAddress(homeAddress))
	require.NoError(t, store.SetDeliveryType(services.DeliveryPickup))
	require.NoError(t, store.SetSelectedBranch(centralBranch))
	require.NoError(t, store.PreparePickupOrder(ctx))
}

func TestOrderStore_PrepareGuardsMakeNoCall(t *testing.T) {
	tests := map[string]struct {
		setup   func(*services.OrderStore)
		prepare func(*services.OrderStore) error
	}{
		"pickup without branch or address": {
			setup: func(*services.OrderStore) {},
			prepare: func(s *services.OrderStore) error {
				return s.PreparePickupOrder(context.Background())
			},
		},
		"pickup without branch": {
			setup: func(s *services.OrderStore) {
				_ = s.SetSelectedAddress(homeAddress)
				_ = s.SetDeliveryType(services.DeliveryPickup)
			},
			prepare: func(s *services.OrderStore) error {
				return s.PreparePickupOrder(context.Background())
			},
		},
		"delivery without address": {
			setup: func(s *services.OrderStore) {
				_ = s.SetDeliveryType(services.DeliveryDelivery)
			},
			prepare: func(s *services.OrderStore) error {
				return s.PrepareDeliveryOrder(context.Background())
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			api := checkoutBackend()
			store := services.NewOrderStore(api, zaptest.NewLogger(t))
			tc.setup(store)

			err := tc.prepare(store)

			require.ErrorIs(t, err, services.ErrMissingSelection)
			assert.Equal(t, services.KindValidation, services.KindOf(err))
			assert.Empty(t, api.Calls())
			snap := store.Snapshot()
			assert.NotEmpty(t, snap.Error)
			assert.Nil(t, snap.Draft)
		})
	}
}

func TestOrderStore_PreparePickupDraft(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))

	draftedPickup(t, store)

	snap := store.Snapshot()
	assert.Equal(t, services.StageDrafted, snap.Stage)
	require.NotNil(t, snap.Draft)
	assert.Equal(t, "br-1", snap.Draft.BranchID)
	assert.Equal(t, "addr-1", snap.Draft.AddressID)
	assert.True(t, snap.CartTotal.Equal(money("25.00")))
	assert.True(t, snap.FinalTotal.Equal(money("25.00")))
	assert.NotEmpty(t, snap.IdempotencyKey)
	assert.Empty(t, snap.Error)
}

func TestOrderStore_VoucherRoundTrip(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	draftedPickup(t, store)
	ctx := context.Background()

	require.NoError(t, store.ValidateVoucher(ctx, " SAVE5 "))

	snap := store.Snapshot()
	require.NotNil(t, snap.Voucher)
	assert.Equal(t, "SAVE5", snap.Voucher.Code)
	assert.Equal(t, "v-1", snap.Voucher.VoucherID)
	assert.True(t, snap.DiscountAmount.Equal(money("5")))
	assert.True(t, snap.FinalTotal.Equal(money("20.00")), "got %s", snap.FinalTotal)

	store.ClearVoucher()

	snap = store.Snapshot()
	assert.Nil(t, snap.Voucher)
	assert.True(t, snap.DiscountAmount.IsZero())
	assert.True(t, snap.FinalTotal.Equal(snap.CartTotal))
	assert.True(t, snap.FinalTotal.Equal(money("25.00")))
}

func TestOrderStore_VoucherNeverDrivesTotalNegative(t *testing.T) {
	api := checkoutBackend()
	api.validate = func(_ context.Context, req apiclient.ValidateVoucherRequest) (*apiclient.VoucherValidation, error) {
		return &apiclient.VoucherValidation{Valid: true, VoucherID: "v-big", Code: req.Code, DiscountAmount: money("40")}, nil
	}
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	draftedPickup(t, store)

	require.NoError(t, store.ValidateVoucher(context.Background(), "FREE"))

	assert.True(t, store.Snapshot().FinalTotal.IsZero())
}

func TestOrderStore_VoucherFailures(t *testing.T) {
	t.Run("rejected by backend", func(t *testing.T) {
		api := checkoutBackend()
		api.validate = func(context.Context, apiclient.ValidateVoucherRequest) (*apiclient.VoucherValidation, error) {
			return nil, &apiclient.APIError{Status: http.StatusOK, Message: "voucher expired"}
		}
		store := services.NewOrderStore(api, zaptest.NewLogger(t))
		draftedPickup(t, store)

		err := store.ValidateVoucher(context.Background(), "OLD")

		require.ErrorIs(t, err, services.ErrInvalidVoucher)
		assert.Equal(t, services.KindBusiness, services.KindOf(err))
		snap := store.Snapshot()
		assert.Equal(t, "voucher expired", snap.VoucherError)
		assert.Empty(t, snap.Error, "voucher failures only touch VoucherError")
		assert.Nil(t, snap.Voucher)
		assert.True(t, snap.FinalTotal.Equal(money("25.00")))
	})

	t.Run("empty code", func(t *testing.T) {
		api := checkoutBackend()
		store := services.NewOrderStore(api, zaptest.NewLogger(t))
		draftedPickup(t, store)
		before := len(api.Calls())

		err := store.ValidateVoucher(context.Background(), "   ")

		require.ErrorIs(t, err, services.ErrInvalidVoucher)
		assert.Equal(t, services.KindValidation, services.KindOf(err))
		assert.Len(t, api.Calls(), before)
		assert.NotEmpty(t, store.Snapshot().VoucherError)
	})

	t.Run("before a draft exists", func(t *testing.T) {
		api := checkoutBackend()
		store := services.NewOrderStore(api, zaptest.NewLogger(t))

		err := store.ValidateVoucher(context.Background(), "SAVE5")

		require.ErrorIs(t, err, services.ErrOutOfSequence)
		assert.Zero(t, api.CallCount("ValidateVoucher"))
	})
}

func TestOrderStore_DeliveryAvailability(t *testing.T) {
	t.Run("available assigns the branch", func(t *testing.T) {
		api := checkoutBackend()
		store := services.NewOrderStore(api, zaptest.NewLogger(t))
		require.NoError(t, store.SetSelectedAddress(homeAddress))
		require.NoError(t, store.SetDeliveryType(services.DeliveryDelivery))

		ok, err := store.CheckDeliveryAvailability(context.Background())

		require.NoError(t, err)
		assert.True(t, ok)
		snap := store.Snapshot()
		assert.True(t, snap.DeliveryAvailable)
		require.NotNil(t, snap.SelectedBranch)
		assert.Equal(t, "br-1", snap.SelectedBranch.ID)
		assert.Equal(t, services.StageLocationResolved, snap.Stage)

		require.NoError(t, store.PrepareDeliveryOrder(context.Background()))
		assert.True(t, store.Snapshot().CartTotal.Equal(money("28.00")))
	})

	t.Run("unavailable blocks the delivery draft", func(t *testing.T) {
		api := checkoutBackend()
		api.availability = func(context.Context, apiclient.Coordinates) (*apiclient.DeliveryAvailability, error) {
			return &apiclient.DeliveryAvailability{IsDeliveryAvailable: false, Message: "outside delivery radius"}, nil
		}
		store := services.NewOrderStore(api, zaptest.NewLogger(t))
		require.NoError(t, store.SetSelectedAddress(homeAddress))
		require.NoError(t, store.SetDeliveryType(services.DeliveryDelivery))

		ok, err := store.CheckDeliveryAvailability(context.Background())

		require.ErrorIs(t, err, services.ErrDeliveryUnavailable)
		assert.False(t, ok)
		snap := store.Snapshot()
		assert.False(t, snap.DeliveryAvailable)
		assert.Equal(t, "outside delivery radius", snap.Error)

		err = store.PrepareDeliveryOrder(context.Background())
		require.ErrorIs(t, err, services.ErrOutOfSequence)
		assert.Zero(t, api.CallCount("PrepareDeliveryOrder"))
	})

	t.Run("requires delivery type", func(t *testing.T) {
		api := checkoutBackend()
		store := services.NewOrderStore(api, zaptest.NewLogger(t))
		require.NoError(t, store.SetSelectedAddress(homeAddress))
		require.NoError(t, store.SetDeliveryType(services.DeliveryPickup))

		_, err := store.CheckDeliveryAvailability(context.Background())

		require.ErrorIs(t, err, services.ErrOutOfSequence)
		assert.Empty(t, api.Calls())
	})
}

func TestOrderStore_SelectionChangesDiscardDraft(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	draftedPickup(t, store)
	require.NoError(t, store.ValidateVoucher(context.Background(), "SAVE5"))

	require.NoError(t, store.SetDeliveryType(services.DeliveryDelivery))

	snap := store.Snapshot()
	assert.Equal(t, services.StageDeliveryChosen, snap.Stage)
	assert.Nil(t, snap.Draft)
	assert.Nil(t, snap.Voucher)
	assert.Nil(t, snap.SelectedBranch)
	assert.Empty(t, snap.IdempotencyKey)
	assert.True(t, snap.FinalTotal.IsZero())
}

func TestOrderStore_SetSelectedBranchIsPickupOnly(t *testing.T) {
	store := services.NewOrderStore(checkoutBackend(), zaptest.NewLogger(t))
	require.NoError(t, store.SetDeliveryType(services.DeliveryDelivery))

	err := store.SetSelectedBranch(centralBranch)

	require.ErrorIs(t, err, services.ErrOutOfSequence)
	assert.Nil(t, store.Snapshot().SelectedBranch)
}

func TestOrderStore_InvalidDeliveryType(t *testing.T) {
	store := services.NewOrderStore(checkoutBackend(), zaptest.NewLogger(t))

	err := store.SetDeliveryType("drone")

	require.ErrorIs(t, err, services.ErrInvalidDeliveryType)
	assert.Equal(t, services.StageIdle, store.Snapshot().Stage)
}

func TestOrderStore_PaymentMethodsFilteredForPickup(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	draftedPickup(t, store)

	methods, err := store.FetchPaymentMethods(context.Background())

	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "card", methods[0].ID)

	err = store.SelectPaymentMethod("cod")
	require.ErrorIs(t, err, services.ErrUnknownOption)

	require.NoError(t, store.SelectPaymentMethod("card"))
	assert.Equal(t, services.StagePaymentSelected, store.Snapshot().Stage)
}

func TestOrderStore_PaymentMethodsKeptForDelivery(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	require.NoError(t, store.SetSelectedAddress(homeAddress))
	require.NoError(t, store.SetDeliveryType(services.DeliveryDelivery))

	methods, err := store.FetchPaymentMethods(context.Background())

	require.NoError(t, err)
	assert.Len(t, methods, 2)
}

func TestOrderStore_FinalizeRequiresSelections(t *testing.T) {
	// processedPickup is a checkout ready to finalize.
	processedPickup := func() services.OrderSnapshot {
		address, branch, card := homeAddress, centralBranch, cardMethod
		return services.OrderSnapshot{
			Stage:                 services.StagePaymentProcessed,
			DeliveryType:          services.DeliveryPickup,
			SelectedAddress:       &address,
			SelectedBranch:        &branch,
			Draft:                 &apiclient.OrderDraft{ID: "draft-1"},
			CartTotal:             money("25"),
			FinalTotal:            money("25"),
			PaymentMethods:        []apiclient.PaymentMethod{cardMethod},
			SelectedPaymentMethod: &card,
			PaymentDetails:        apiclient.PaymentDetails{"reference": "pay-123"},
			IdempotencyKey:        "key-1",
		}
	}

	tests := map[string]struct {
		clear       func(*services.OrderSnapshot)
		wantMissing string
	}{
		"delivery type":  {clear: func(s *services.OrderSnapshot) { s.DeliveryType = "" }, wantMissing: "delivery type"},
		"branch":         {clear: func(s *services.OrderSnapshot) { s.SelectedBranch = nil }, wantMissing: "branch"},
		"address":        {clear: func(s *services.OrderSnapshot) { s.SelectedAddress = nil }, wantMissing: "address"},
		"payment method": {clear: func(s *services.OrderSnapshot) { s.SelectedPaymentMethod = nil }, wantMissing: "payment method"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			api := checkoutBackend()
			store := services.NewOrderStore(api, zaptest.NewLogger(t))
			snapshot := processedPickup()
			tc.clear(&snapshot)
			store.Restore(snapshot)

			err := store.FinalizeOrder(context.Background(), "")

			require.ErrorIs(t, err, services.ErrMissingSelection)
			snap := store.Snapshot()
			assert.Equal(t, "missing "+tc.wantMissing, services.MessageOf(err))
			assert.Contains(t, snap.Error, tc.wantMissing)
			assert.False(t, snap.OrderPlaced)
			assert.Empty(t, api.Calls())
		})
	}

	t.Run("nothing selected", func(t *testing.T) {
		api := checkoutBackend()
		store := services.NewOrderStore(api, zaptest.NewLogger(t))

		err := store.FinalizeOrder(context.Background(), "extra napkins")

		require.ErrorIs(t, err, services.ErrMissingSelection)
		assert.Equal(t, "missing delivery type, branch, address, payment method", services.MessageOf(err))
		assert.Empty(t, api.Calls())
	})

	t.Run("all selected", func(t *testing.T) {
		api := checkoutBackend()
		store := services.NewOrderStore(api, zaptest.NewLogger(t))
		store.Restore(processedPickup())

		require.NoError(t, store.FinalizeOrder(context.Background(), ""))
		assert.Equal(t, 1, api.CallCount("FinalizeOrder"))
	})
}

func TestOrderStore_SwitchToPickupDropsDeliveryOnlyMethods(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, store.SetSelectedAddress(homeAddress))
	require.NoError(t, store.SetDeliveryType(services.DeliveryDelivery))
	methods, err := store.FetchPaymentMethods(ctx)
	require.NoError(t, err)
	require.Len(t, methods, 2)

	require.NoError(t, store.SetDeliveryType(services.DeliveryPickup))
	assert.Empty(t, store.Snapshot().PaymentMethods)
	require.NoError(t, store.SetSelectedBranch(centralBranch))
	require.NoError(t, store.PreparePickupOrder(ctx))

	err = store.SelectPaymentMethod("cod")

	require.ErrorIs(t, err, services.ErrUnknownOption)
	assert.Nil(t, store.Snapshot().SelectedPaymentMethod)
	assert.Equal(t, services.StageDrafted, store.Snapshot().Stage)
}

func TestOrderStore_RestoredDeliveryOnlyMethodRejectedForPickup(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	address, branch, cash := homeAddress, centralBranch, cashMethod
	store.Restore(services.OrderSnapshot{
		Stage:                 services.StagePaymentSelected,
		DeliveryType:          services.DeliveryPickup,
		SelectedAddress:       &address,
		SelectedBranch:        &branch,
		Draft:                 &apiclient.OrderDraft{ID: "draft-1"},
		CartTotal:             money("25"),
		FinalTotal:            money("25"),
		PaymentMethods:        []apiclient.PaymentMethod{cardMethod, cashMethod},
		SelectedPaymentMethod: &cash,
	})

	require.ErrorIs(t, store.SelectPaymentMethod("cod"), services.ErrUnknownOption)
	require.ErrorIs(t, store.ProcessPayment(context.Background()), services.ErrUnknownOption)
	assert.Zero(t, api.CallCount("ProcessPayment"))

	require.NoError(t, store.SelectPaymentMethod("card"))
	require.NoError(t, store.ProcessPayment(context.Background()))
}

func TestOrderStore_FinalizeRequiresProcessedPayment(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	draftedPickup(t, store)
	_, err := store.FetchPaymentMethods(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.SelectPaymentMethod("card"))

	err = store.FinalizeOrder(context.Background(), "")

	require.ErrorIs(t, err, services.ErrOutOfSequence)
	assert.Zero(t, api.CallCount("FinalizeOrder"))
}

func TestOrderStore_PaymentThenFinalize(t *testing.T) {
	api := checkoutBackend()
	var payment apiclient.ProcessPaymentRequest
	var final apiclient.FinalizeOrderRequest
	api.processPayment = func(_ context.Context, req apiclient.ProcessPaymentRequest) (apiclient.PaymentDetails, error) {
		payment = req
		return apiclient.PaymentDetails{"reference": "pay-123"}, nil
	}
	api.finalize = func(_ context.Context, req apiclient.FinalizeOrderRequest) (*apiclient.FinalizeOrderResponse, error) {
		final = req
		return &apiclient.FinalizeOrderResponse{OrderID: "order-1"}, nil
	}
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	ctx := context.Background()
	draftedPickup(t, store)
	require.NoError(t, store.ValidateVoucher(ctx, "SAVE5"))
	_, err := store.FetchPaymentMethods(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SelectPaymentMethod("card"))

	require.NoError(t, store.ProcessPayment(ctx))

	snap := store.Snapshot()
	assert.Equal(t, services.StagePaymentProcessed, snap.Stage)
	assert.Equal(t, "pay-123", snap.PaymentDetails["reference"])
	assert.False(t, snap.OrderPlaced, "payment alone does not place the order")
	assert.Equal(t, "card", payment.PaymentMethodID)
	assert.Equal(t, "v-1", payment.VoucherID)
	assert.Equal(t, "draft-1", payment.DraftID)
	assert.True(t, payment.Amount.Equal(money("20.00")))

	require.NoError(t, store.FinalizeOrder(ctx, "  ring the bell "))

	snap = store.Snapshot()
	assert.True(t, snap.OrderPlaced)
	assert.Equal(t, "order-1", snap.OrderID)
	assert.Equal(t, services.StageFinalized, snap.Stage)
	assert.Equal(t, "pickup", final.DeliveryType)
	assert.Equal(t, "br-1", final.BranchID)
	assert.Equal(t, "addr-1", final.AddressID)
	assert.Equal(t, "card", final.PaymentMethod)
	assert.Equal(t, "v-1", final.VoucherID)
	assert.Equal(t, "ring the bell", final.Notes)
	assert.Equal(t, "pay-123", final.PaymentDetails["reference"])
	assert.Equal(t, snap.IdempotencyKey, final.IdempotencyKey)
	assert.NotEmpty(t, final.IdempotencyKey)
}

func TestOrderStore_VoucherAfterPaymentRewindsPayment(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	ctx := context.Background()
	draftedPickup(t, store)
	_, err := store.FetchPaymentMethods(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SelectPaymentMethod("card"))
	require.NoError(t, store.ProcessPayment(ctx))

	require.NoError(t, store.ValidateVoucher(ctx, "SAVE5"))

	snap := store.Snapshot()
	assert.Equal(t, services.StagePaymentSelected, snap.Stage)
	assert.Nil(t, snap.PaymentDetails)
}

func TestOrderStore_ResetRestoresInitialState(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	draftedPickup(t, store)
	require.NoError(t, store.ValidateVoucher(context.Background(), "SAVE5"))

	store.ResetOrderState()

	fresh := services.NewOrderStore(api, zaptest.NewLogger(t)).Snapshot()
	assert.Equal(t, fresh, store.Snapshot())
}

func TestOrderStore_ResponseAfterResetIsStale(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := checkoutBackend()
	api.preparePickup = func(_ context.Context, req apiclient.PrepareOrderRequest) (*apiclient.OrderDraft, error) {
		close(started)
		<-release
		return &apiclient.OrderDraft{ID: "late", TotalAmount: money("25")}, nil
	}
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	require.NoError(t, store.SetSelectedAddress(homeAddress))
	require.NoError(t, store.SetDeliveryType(services.DeliveryPickup))
	require.NoError(t, store.SetSelectedBranch(centralBranch))

	errCh := make(chan error, 1)
	go func() { errCh <- store.PreparePickupOrder(context.Background()) }()
	<-started
	store.ResetOrderState()
	close(release)

	err := <-errCh
	require.ErrorIs(t, err, services.ErrStaleResponse)
	snap := store.Snapshot()
	assert.Nil(t, snap.Draft)
	assert.Equal(t, services.StageIdle, snap.Stage)
	assert.False(t, snap.Loading)
}

func TestOrderStore_RestoreRoundTrip(t *testing.T) {
	api := checkoutBackend()
	store := services.NewOrderStore(api, zaptest.NewLogger(t))
	draftedPickup(t, store)
	saved := store.Snapshot()

	restored := services.NewOrderStore(api, zaptest.NewLogger(t))
	restored.Restore(saved)

	assert.Equal(t, saved, restored.Snapshot())
	require.NoError(t, restored.ValidateVoucher(context.Background(), "SAVE5"))
	assert.True(t, restored.Snapshot().FinalTotal.Equal(money("20")))
}
