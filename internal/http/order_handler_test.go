package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createOrder(t *testing.T, srv *testServer, token string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("POST", "/api/v1/orders/", nil), token)
	srv.router.ServeHTTP(recorder, request)
	return recorder
}

func uploadReceipt(t *testing.T, srv *testServer, token, orderID, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="receipt"; filename="receipt"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("POST", "/api/v1/orders/"+orderID+"/receipt", &body), token)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	srv.router.ServeHTTP(recorder, request)
	return recorder
}

func TestCreateOrder_FromCart(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")

	require.Equal(t, http.StatusOK, addItem(t, srv, token, 1, 2).Code)
	require.Equal(t, http.StatusOK, addItem(t, srv, token, 2, 1).Code)

	recorder := createOrder(t, srv, token)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp CreateOrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, int64(250), resp.Total)
	assert.Equal(t, "AWAITING_RECEIPT", resp.Status)
	assert.NotEmpty(t, resp.OrderID)

	// The cart is cleared by order creation.
	cartRecorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("GET", "/api/v1/cart/", nil), token)
	srv.router.ServeHTTP(cartRecorder, request)
	assert.Empty(t, decodeCart(t, cartRecorder).Items)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")

	recorder := createOrder(t, srv, token)
	assert.Equal(t, http.StatusConflict, recorder.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "empty_cart", resp.Code)
}

func placeOrder(t *testing.T, srv *testServer, token string) string {
	t.Helper()
	require.Equal(t, http.StatusOK, addItem(t, srv, token, 1, 2).Code)
	recorder := createOrder(t, srv, token)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp CreateOrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	return resp.OrderID
}

func TestUploadReceipt_Success(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")
	orderID := placeOrder(t, srv, token)

	recorder := uploadReceipt(t, srv, token, orderID, "image/png", []byte("proof"))
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp UploadReceiptResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ReceiptID)
	assert.Equal(t, "PENDING_VERIFICATION", resp.Status)
}

func TestUploadReceipt_SecondUploadConflicts(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")
	orderID := placeOrder(t, srv, token)

	require.Equal(t, http.StatusOK, uploadReceipt(t, srv, token, orderID, "image/png", []byte("first")).Code)

	recorder := uploadReceipt(t, srv, token, orderID, "image/png", []byte("second"))
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestUploadReceipt_UnsupportedType(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")
	orderID := placeOrder(t, srv, token)

	recorder := uploadReceipt(t, srv, token, orderID, "text/plain", []byte("not a receipt"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUploadReceipt_NotOwner(t *testing.T) {
	srv := newTestServer()
	orderID := placeOrder(t, srv, srv.customerToken("123"))

	recorder := uploadReceipt(t, srv, srv.customerToken("456"), orderID, "image/png", []byte("proof"))
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestUploadReceipt_MissingFile(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")
	orderID := placeOrder(t, srv, token)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("POST", "/api/v1/orders/"+orderID+"/receipt", &body), token)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	srv.router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDownloadReceipt(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")
	orderID := placeOrder(t, srv, token)

	require.Equal(t, http.StatusOK, uploadReceipt(t, srv, token, orderID, "image/png", []byte("proof")).Code)

	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("GET", "/api/v1/orders/"+orderID+"/receipt", nil), token)
	srv.router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "image/png", recorder.Header().Get("Content-Type"))
	assert.Equal(t, "proof", recorder.Body.String())
}

func TestDownloadReceipt_AdminRoute(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")
	orderID := placeOrder(t, srv, token)

	require.Equal(t, http.StatusOK, uploadReceipt(t, srv, token, orderID, "application/pdf", []byte("proof")).Code)

	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("GET", "/api/v1/admin/orders/"+orderID+"/receipt", nil), srv.adminToken("admin-1"))
	srv.router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/pdf", recorder.Header().Get("Content-Type"))
}

func TestDownloadReceipt_NoneUploaded(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")
	orderID := placeOrder(t, srv, token)

	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("GET", "/api/v1/orders/"+orderID+"/receipt", nil), token)
	srv.router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "receipt_not_found", resp.Code)
}

func TestDownloadReceipt_OtherCustomerForbidden(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")
	orderID := placeOrder(t, srv, token)

	require.Equal(t, http.StatusOK, uploadReceipt(t, srv, token, orderID, "image/png", []byte("proof")).Code)

	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("GET", "/api/v1/orders/"+orderID+"/receipt", nil), srv.customerToken("456"))
	srv.router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestGetOrder(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")
	orderID := placeOrder(t, srv, token)

	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("GET", "/api/v1/orders/"+orderID, nil), token)
	srv.router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp OrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, orderID, resp.ID)
	assert.Equal(t, "123", resp.OwnerID)
	assert.Nil(t, resp.Receipt)
}

func TestGetOrder_InvalidID(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")

	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("GET", "/api/v1/orders/not-a-uuid", nil), token)
	srv.router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetOrder_OtherCustomerForbidden(t *testing.T) {
	srv := newTestServer()
	orderID := placeOrder(t, srv, srv.customerToken("123"))

	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("GET", "/api/v1/orders/"+orderID, nil), srv.customerToken("456"))
	srv.router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestListOrders_OwnOnly(t *testing.T) {
	srv := newTestServer()
	token := srv.customerToken("123")

	placeOrder(t, srv, token)
	placeOrder(t, srv, srv.customerToken("456"))

	recorder := httptest.NewRecorder()
	request := withBearer(httptest.NewRequest("GET", "/api/v1/orders/", nil), token)
	srv.router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp []OrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "123", resp[0].OwnerID)
}
